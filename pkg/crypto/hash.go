package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Ошибки хеширования
var (
	ErrEmptyToken    = errors.New("token cannot be empty")
	ErrTokenMismatch = errors.New("token does not match hash")
	ErrInvalidHash   = errors.New("invalid token hash format")
	ErrTokenTooLong  = errors.New("token exceeds maximum length of 72 bytes")
)

// DefaultCost - стоимость bcrypt по умолчанию.
// Токен проверяется редко (только при аутентификации API запроса),
// поэтому высокая стоимость допустима.
const DefaultCost = 12

// MaxTokenLength - ограничение bcrypt на длину входа (72 байта)
const MaxTokenLength = 72

// HashToken хеширует токен доступа к управляющему API.
// Salt генерируется автоматически.
func HashToken(token string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}

	if len(token) > MaxTokenLength {
		return "", ErrTokenTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyToken проверяет соответствие токена хешу.
// Сравнение constant-time, защищено от timing attacks.
func VerifyToken(token, hash string) error {
	if token == "" {
		return ErrEmptyToken
	}

	if hash == "" {
		return ErrInvalidHash
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrTokenMismatch
		}
		return ErrInvalidHash
	}

	return nil
}

// CheckTokenMatch возвращает bool вместо ошибки, для использования в условиях
func CheckTokenMatch(token, hash string) bool {
	return VerifyToken(token, hash) == nil
}
