package services

import (
	"crypto/rand"
	"math/big"
)

// charset defines the character set used for generating hashes.
// 62 alphanumeric characters: 62^6 = ~56 billion possible 6-character hashes.
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultHashLength est la longueur des hashes générés.
const DefaultHashLength = 6

// HashGenerator produit un candidat de hash. Aucune garantie d'unicité :
// c'est l'index unique de la base qui tranche.
type HashGenerator interface {
	Generate() string
}

// RandomHashGenerator tire chaque caractère de charset avec crypto/rand.
type RandomHashGenerator struct {
	length int
}

// NewRandomHashGenerator returns a generator of length-character hashes.
// A non-positive length falls back to DefaultHashLength.
func NewRandomHashGenerator(length int) *RandomHashGenerator {
	if length <= 0 {
		length = DefaultHashLength
	}
	return &RandomHashGenerator{length: length}
}

var charsetSize = big.NewInt(int64(len(charset)))

// Generate returns a new random hash.
func (g *RandomHashGenerator) Generate() string {
	code := make([]byte, g.length)
	for i := range code {
		// crypto/rand.Reader ne renvoie pas d'erreur depuis Go 1.24.
		num, err := rand.Int(rand.Reader, charsetSize)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		code[i] = charset[num.Int64()]
	}
	return string(code)
}
