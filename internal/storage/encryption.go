package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/argon2"
)

const (
	// encryptionMagic identifies encrypted backup files.
	encryptionMagic = "TCGPENC1"

	// Argon2id parameters per RFC 9106.
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32

	saltLength = 32
)

// deriveKey derives a 256-bit AES key from the password with Argon2id.
func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
}

// EncryptData encrypts plaintext with AES-256-GCM under a key derived
// from password. The output is salt || nonce || ciphertext.
func EncryptData(plaintext []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, fmt.Errorf("password required")
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	result := make([]byte, 0, len(salt)+len(nonce)+len(plaintext)+gcm.Overhead())
	result = append(result, salt...)
	result = append(result, nonce...)
	return gcm.Seal(result, nonce, plaintext, nil), nil
}

// DecryptData reverses EncryptData. A wrong password surfaces as an
// authentication failure.
func DecryptData(encrypted []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, fmt.Errorf("password required")
	}
	if len(encrypted) < saltLength {
		return nil, fmt.Errorf("encrypted data too short")
	}

	salt := encrypted[:saltLength]
	rest := encrypted[saltLength:]

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(rest) < gcm.NonceSize()+gcm.Overhead() {
		return nil, fmt.Errorf("encrypted data too short")
	}
	nonce := rest[:gcm.NonceSize()]
	ciphertext := rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (wrong password or corrupted data): %w", err)
	}
	return plaintext, nil
}

// EncryptFile encrypts sourcePath into destPath, prefixed with the
// magic header so IsEncrypted can recognize the file.
func EncryptFile(sourcePath, destPath, password string) error {
	plaintext, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read source file: %w", err)
	}

	encrypted, err := EncryptData(plaintext, password)
	if err != nil {
		return err
	}

	out := make([]byte, 0, len(encryptionMagic)+len(encrypted))
	out = append(out, encryptionMagic...)
	out = append(out, encrypted...)
	if err := os.WriteFile(destPath, out, 0o600); err != nil {
		return fmt.Errorf("failed to write encrypted file: %w", err)
	}
	return nil
}

// DecryptFile decrypts a file produced by EncryptFile into destPath.
func DecryptFile(sourcePath, destPath, password string) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read encrypted file: %w", err)
	}

	if len(data) < len(encryptionMagic) || string(data[:len(encryptionMagic)]) != encryptionMagic {
		return fmt.Errorf("file is not encrypted or has wrong format")
	}

	plaintext, err := DecryptData(data[len(encryptionMagic):], password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(destPath, plaintext, 0o600); err != nil {
		return fmt.Errorf("failed to write decrypted file: %w", err)
	}
	return nil
}

// IsEncrypted reports whether the file carries the encryption magic
// header.
func IsEncrypted(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = file.Close() }()

	header := make([]byte, len(encryptionMagic))
	n, err := file.Read(header)
	if err != nil && err != io.EOF {
		return false, err
	}
	return n == len(encryptionMagic) && string(header) == encryptionMagic, nil
}
