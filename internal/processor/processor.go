package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/disintegration/imaging"
)

// Tier names a resolution profile for a stored rendition.
type Tier string

const (
	TierLow  Tier = "low"
	TierMid  Tier = "mid"
	TierHigh Tier = "high"
)

var tierWidths = map[Tier]int{
	TierLow:  320,
	TierMid:  720,
	TierHigh: 1280,
}

var (
	ErrDecode      = errors.New("image decode failed")
	ErrEncode      = errors.New("image encode failed")
	ErrUnknownTier = errors.New("unknown resolution tier")
)

// Tiers returns all tiers in their fixed order, so callers that produce
// every rendition do so deterministically.
func Tiers() []Tier {
	return []Tier{TierLow, TierMid, TierHigh}
}

// Width returns the target pixel width for a tier.
func Width(t Tier) int {
	return tierWidths[t]
}

func (t Tier) String() string {
	return string(t)
}

func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if _, ok := tierWidths[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
	return t, nil
}

func quality(t Tier) int {
	if t == TierLow {
		return 60
	}
	return 80
}

// Transcode resizes raw JPEG/PNG bytes to the tier's target width, keeping
// the source aspect ratio, and re-encodes as JPEG. Small sources are scaled
// up to fill the target box. The result is composed onto a white canvas of
// exactly targetWidth x targetHeight, which flattens PNG transparency and
// absorbs rounding, so the returned dimensions are predictable for any
// source.
func Transcode(src []byte, tier Tier) ([]byte, int, int, error) {
	const op = "processor.Transcode"

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s: %w: %v", op, ErrDecode, err)
	}

	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return nil, 0, 0, fmt.Errorf("%s: %w: empty image", op, ErrDecode)
	}

	targetW := Width(tier)
	targetH := int(math.Round(float64(targetW) * float64(srcH) / float64(srcW)))
	if targetH < 1 {
		targetH = 1
	}

	resized := imaging.Resize(img, targetW, targetH, imaging.Lanczos)
	canvas := imaging.New(targetW, targetH, color.White)
	out := imaging.PasteCenter(canvas, resized)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(quality(tier))); err != nil {
		return nil, 0, 0, fmt.Errorf("%s: %w: %v", op, ErrEncode, err)
	}

	return buf.Bytes(), targetW, targetH, nil
}
