// Package logging configures structured JSON logging for segdex.
// Logs go to a size-rotated file under ~/.segdex/logs/ and, outside of
// stdio server mode, to stderr as well.
package logging
