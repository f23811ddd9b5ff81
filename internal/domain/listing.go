package domain

// ArchiveListing describes one archive whose matching sources were copied
// out to a staging directory on the real filesystem, so that an external
// compiler expecting plain paths can read them.
type ArchiveListing struct {
	// Archive is the path of the original container on disk.
	Archive string
	// StagingRoot is the directory the matched entries were copied into.
	// It is derived deterministically from the archive's file name, so
	// repeated extractions of a same-named archive resolve to one location.
	StagingRoot string
	// Sources are the staged file paths in archive discovery order. Every
	// entry is a descendant of StagingRoot.
	Sources []string
}
