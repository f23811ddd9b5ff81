package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/protostage/protostage/configs"
	"github.com/protostage/protostage/internal/adapter/outbound/protocexec"
	"github.com/protostage/protostage/internal/adapter/outbound/scanner"
	"github.com/protostage/protostage/internal/adapter/outbound/ziparchive"
	"github.com/protostage/protostage/internal/domain"
	"github.com/protostage/protostage/internal/usecase"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "protostage",
		Short:         "Stages protobuf sources and assembles protoc invocations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"path to the YAML configuration file (overrides PROTOSTAGE_CONFIG_FILE)")

	root.AddCommand(
		newScanCmd(&configFile),
		newAssembleCmd(&configFile),
		newCompileCmd(&configFile),
	)
	return root
}

// newScanCmd lists the sources discovered in the configured plain
// directories, one path per line.
func newScanCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List discovered source files in the configured source directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configFile)
			if err != nil {
				return err
			}

			resolver := scanner.New(domain.NewPathFilter(cfg.SourceExtension), logger)
			sources, err := resolver.Resolve(cmd.Context(), cfg.SourceDirs)
			if err != nil {
				return err
			}
			for _, source := range sources {
				fmt.Fprintln(cmd.OutOrStdout(), source)
			}
			return nil
		},
	}
}

// newAssembleCmd runs the full staging pipeline and prints the resulting
// compiler argument sequence without executing it.
func newAssembleCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "assemble",
		Short: "Stage archive sources and print the assembled compiler invocation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, uc, shutdownOtel, err := buildPipeline(*configFile)
			if err != nil {
				return err
			}
			defer shutdownTracing(shutdownOtel)

			res, err := uc.Assemble(cmd.Context(), requestFromConfig(cfg))
			if err != nil {
				return err
			}
			if res.Invocation.IsZero() {
				slog.Warn("Nothing to compile.")
				return nil
			}
			for _, arg := range res.Invocation.Args() {
				fmt.Fprintln(cmd.OutOrStdout(), arg)
			}
			return nil
		},
	}
}

// newCompileCmd runs the full pipeline and executes the external compiler.
func newCompileCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "compile",
		Short: "Stage sources, assemble the invocation and run the compiler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, uc, shutdownOtel, err := buildPipeline(*configFile)
			if err != nil {
				return err
			}
			defer shutdownTracing(shutdownOtel)

			_, execRes, err := uc.Compile(cmd.Context(), requestFromConfig(cfg))
			if execRes != nil && execRes.Stdout != "" {
				fmt.Fprint(cmd.OutOrStdout(), execRes.Stdout)
			}
			return err
		},
	}
}

// setup loads the configuration and installs the configured logger.
func setup(configFile string) (*configs.Config, *slog.Logger, error) {
	cfg, err := configs.LoadFrom(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.ParsedLogLevel()}))
	slog.SetDefault(logger)

	return cfg, logger, nil
}

// buildPipeline loads configuration, initializes tracing and wires the
// adapters into the use case.
func buildPipeline(configFile string) (*configs.Config, *usecase.AssembleUseCase, func(context.Context) error, error) {
	cfg, logger, err := setup(configFile)
	if err != nil {
		return nil, nil, nil, err
	}

	shutdownOtel, err := initOtelProvider(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	filter := domain.NewPathFilter(cfg.SourceExtension)
	resolver := scanner.New(filter, logger)
	extractor := ziparchive.New(cfg.StagingDir(), filter, logger)
	runner := protocexec.New(logger)
	uc := usecase.NewAssembleUseCase(resolver, extractor, runner, logger)

	return cfg, uc, shutdownOtel, nil
}

func requestFromConfig(cfg *configs.Config) usecase.AssembleRequest {
	outputs := make([]usecase.OutputSpec, len(cfg.Outputs))
	for i, out := range cfg.Outputs {
		outputs[i] = usecase.OutputSpec{Kind: out.Kind, Dir: out.Dir}
	}
	return usecase.AssembleRequest{
		Executable:          cfg.ProtocPath,
		SourceDirs:          cfg.SourceDirs,
		Archives:            cfg.Archives,
		IncludeDirs:         cfg.IncludeDirs,
		Outputs:             outputs,
		DeterministicOutput: cfg.DeterministicOutput,
		FatalWarnings:       cfg.FatalWarnings,
	}
}

func shutdownTracing(shutdown func(context.Context) error) {
	if err := shutdown(context.Background()); err != nil {
		slog.Error("Failed to shutdown OpenTelemetry TracerProvider.", slog.Any("error", err))
	}
}

// initOtelProvider initializes the OpenTelemetry SDK and sets up the OTLP
// trace exporter. It returns a shutdown function to be called on exit.
func initOtelProvider(cfg *configs.Config) (func(context.Context) error, error) {
	ctx := context.Background()

	if cfg.OtelExporterOtlpEndpoint == "" {
		slog.Debug("OTEL_EXPORTER_OTLP_ENDPOINT not set, OpenTelemetry tracing disabled.")
		return func(context.Context) error { return nil }, nil
	}

	slog.Info("Initializing OTLP exporter.", slog.String("endpoint", cfg.OtelExporterOtlpEndpoint))

	grpcOpts := []grpc.DialOption{}
	if cfg.OtelExporterOtlpInsecure {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		slog.Warn("Using insecure connection for OTLP exporter.")
	}

	conn, err := grpc.NewClient(cfg.OtelExporterOtlpEndpoint, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to OTLP endpoint: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("protostage"),
		),
	)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(r),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) error {
		providerErr := tp.Shutdown(ctx)
		connErr := conn.Close()
		return errors.Join(providerErr, connErr)
	}, nil
}
