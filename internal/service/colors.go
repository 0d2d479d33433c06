package service

// ANSI escapes for status lines. Windows consoles need the writer wrapped
// with go-colorable.
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorBlue  = "\033[34m"
	colorCyan  = "\033[36m"
)
