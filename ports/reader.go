package ports

import "learnerdash/domain/markbook"

// MarkbookReader turns an uploaded document into a raw cell grid. The
// filename only selects the format.
type MarkbookReader interface {
	ReadBytes(data []byte, filename string) (*markbook.RawTable, error)
}
