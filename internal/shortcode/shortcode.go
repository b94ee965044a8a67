// Package shortcode генерирует и проверяет короткие коды ссылок
package shortcode

import (
	"crypto/rand"
	"errors"
	"regexp"
)

const (
	// Alphabet содержит 62 допустимых символа короткого кода
	Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// DefaultLength длина кода по умолчанию
	DefaultLength = 6
	// MinLength минимальная длина допустимого кода
	MinLength = 3
	// MaxLength максимальная длина допустимого кода
	MaxLength = 20
)

// ErrInvalidLength возвращается при запросе кода недопустимой длины
var ErrInvalidLength = errors.New("invalid short code length")

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// байты не меньше этого порога отбрасываются, чтобы b%62 было равномерным
const rejectThreshold = 256 - 256%len(Alphabet)

// Generator создаёт случайные короткие коды
type Generator struct {
	length int
}

// NewGenerator создаёт генератор кодов заданной длины; length <= 0 означает DefaultLength
func NewGenerator(length int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{length: length}
}

// Generate возвращает новый код длины генератора
func (g *Generator) Generate() (string, error) {
	return Generate(g.length)
}

// Length возвращает длину генерируемых кодов
func (g *Generator) Length() int {
	return g.length
}

// Generate возвращает код длины n из символов Alphabet.
// Символы выбираются независимо и равномерно, вызовы не связаны между собой.
func Generate(n int) (string, error) {
	if n < MinLength || n > MaxLength {
		return "", ErrInvalidLength
	}
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= rejectThreshold {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// Validate проверяет, что код состоит из латинских букв и цифр и имеет длину от 3 до 20
func Validate(code string) bool {
	if len(code) < MinLength || len(code) > MaxLength {
		return false
	}
	return codePattern.MatchString(code)
}
