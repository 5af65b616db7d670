package tacozip

// Compression methods.
const (
	Store   uint16 = 0 // no compression
	Deflate uint16 = 8 // DEFLATE compressed
)

const (
	fileHeaderSignature      = 0x04034b50
	directoryHeaderSignature = 0x02014b50
	directoryEndSignature    = 0x06054b50
	directory64LocSignature  = 0x07064b50
	directory64EndSignature  = 0x06064b50
	dataDescriptorSignature  = 0x08074b50
	fileHeaderLen            = 30 // + filename + extra
	directoryHeaderLen       = 46 // + filename + extra + comment
	directoryEndLen          = 22 // + comment
	directory64LocLen        = 20 //
	directory64EndLen        = 56 // + extra

	// Version numbers.
	zipVersion45 = 45 // 4.5 (reads and writes zip64 archives)

	// host=3 (Unix), ZIP version 3.0
	creatorVersion = 3<<8 | 30

	// Limits for non zip64 files.
	uint16max = (1 << 16) - 1
	uint32max = (1 << 32) - 1

	// General purpose flag bits.
	flagDataDescriptor = 0x0008
	flagUTF8           = 0x0800

	zip64ExtraID = 0x0001 // Zip64 extended information

	// Local headers carry uncompressed and compressed size.
	localZip64ExtraLen = 4 + 8 + 8
	// Directory records also carry the local header offset.
	dirZip64ExtraLen = 4 + 8 + 8 + 8

	// unix regular file, rw-r--r--
	regularFileAttrs = 0100644 << 16
)

// Ghost layout.
const (
	GhostSize      = 160
	GhostName      = "TACO_GHOST"
	GhostExtraID   = 0x7454
	MaxPointers    = 7
	ghostNameLen   = len(GhostName)
	ghostExtraLen  = 116 // as declared in the local header
	ghostExtraSize = 112 // as declared in the extra field header
	ghostNameOff   = fileHeaderLen
	ghostExtraOff  = ghostNameOff + ghostNameLen
	ghostCountOff  = ghostExtraOff + 4
	ghostPairsOff  = ghostCountOff + 4
	ghostPairLen   = 16
)

type directoryEnd struct {
	diskNbr            uint32 // unused
	dirDiskNbr         uint32 // unused
	dirRecordsThisDisk uint64 // unused
	directoryRecords   uint64
	directorySize      uint64
	directoryOffset    uint64 // relative to file
	commentLen         uint16
	comment            string
}

// Entry is one central-directory record.
type Entry struct {
	Name   string
	Flags  uint16
	Method uint16

	CRC32              uint32
	CompressedSize64   uint64
	UncompressedSize64 uint64

	// HeaderOffset is the offset of the entry's local header.
	HeaderOffset int64

	// Zip64 reports whether the record carried a zip64 extra field.
	Zip64 bool

	recordOffset int64 // offset of the central-directory record itself
	extraOffset  int64 // offset of the zip64 extra payload in the record, or 0
	sizeInExtra  [2]bool
}

// IsGhost reports whether e is the ghost entry.
func (e Entry) IsGhost() bool {
	return e.Name == GhostName && e.HeaderOffset == 0
}
