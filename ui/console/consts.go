package console

const (
	// Default terminal width in characters.
	defaultTermWidth = 80
	// Marker appended to text cut to the terminal width.
	ellipsis = "..."
)
