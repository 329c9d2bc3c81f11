package ignore

// DefaultNames are operating system metadata files that never carry
// meaningful content. The binary ignores them unless configured otherwise.
var DefaultNames = []string{
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
	"*.swp",
	"*~",
}
