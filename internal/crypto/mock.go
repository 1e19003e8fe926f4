package crypto

import (
	"context"
	"strings"
)

const mockPrefix = "mock:"

// MockEncryptor is used in development when no KMS key is available.
// Ciphertexts carry a "mock:" prefix so they are easy to spot in a local store.
type MockEncryptor struct{}

func NewMockEncryptor() *MockEncryptor {
	return &MockEncryptor{}
}

func (m *MockEncryptor) Encrypt(_ context.Context, plaintext string) (string, error) {
	return mockPrefix + plaintext, nil
}

func (m *MockEncryptor) Decrypt(_ context.Context, ciphertext string) (string, error) {
	return strings.TrimPrefix(ciphertext, mockPrefix), nil
}
