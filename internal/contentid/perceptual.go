package contentid

import (
	"fmt"
	"image"
	"strconv"

	"github.com/corona10/goimagehash"
)

// Perceptual returns the 64-bit difference hash of img as 16 hex characters.
// Visually similar images land close together; the value is never an identity.
func Perceptual(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("perceptual hash: nil image")
	}
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return "", fmt.Errorf("perceptual hash: %w", err)
	}
	return fmt.Sprintf("%016x", hash.GetHash()), nil
}

// Distance returns the Hamming distance between two Perceptual hashes.
func Distance(a, b string) (int, error) {
	left, err := parsePerceptual(a)
	if err != nil {
		return 0, err
	}
	right, err := parsePerceptual(b)
	if err != nil {
		return 0, err
	}
	return left.Distance(right)
}

func parsePerceptual(value string) (*goimagehash.ImageHash, error) {
	if len(value) != 16 {
		return nil, fmt.Errorf("perceptual hash %q: want 16 hex characters", value)
	}
	bits, err := strconv.ParseUint(value, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("perceptual hash %q: %w", value, err)
	}
	return goimagehash.NewImageHash(bits, goimagehash.DHash), nil
}
