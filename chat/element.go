// Package chat holds the boundary contracts toward the chat gateway and the
// batch command flows that drive the archive core.
package chat

// MediaKind tags the closed set of image-like element variants. Normalization
// happens once at the ingestion boundary; downstream logic only ever reads
// the source URL and the kind.
type MediaKind int

const (
	KindStaticImage MediaKind = iota
	KindAnimatedImage
	KindStickerPack
)

func (k MediaKind) String() string {
	switch k {
	case KindStaticImage:
		return "static-image"
	case KindAnimatedImage:
		return "animated-image"
	case KindStickerPack:
		return "sticker-pack"
	default:
		return "unknown"
	}
}

// MediaElement is a normalized image-like content element quoted in a message.
type MediaElement struct {
	Kind     MediaKind
	URL      string
	FileName string
}

// SourceURL is the single accessor for an element's download location,
// regardless of its variant.
func (e MediaElement) SourceURL() string { return e.URL }
