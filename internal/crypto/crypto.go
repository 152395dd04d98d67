// internal/crypto/crypto.go
package crypto

import (
    "crypto/aes"
    "crypto/cipher"
    "crypto/rand"
    "crypto/sha256"
    "encoding/base64"
    "errors"
    "io"
)

// Stored SMTP passwords are encrypted with AES-256-GCM. The 32-byte key is
// derived from the configured ENCRYPTION_KEY via SHA-256, so any passphrase
// length works. Output layout: base64(nonce || ciphertext).

func gcmFor(key string) (cipher.AEAD, error) {
    sum := sha256.Sum256([]byte(key))
    block, err := aes.NewCipher(sum[:])
    if err != nil {
        return nil, err
    }
    return cipher.NewGCM(block)
}

func Encrypt(plaintext, key string) (string, error) {
    gcm, err := gcmFor(key)
    if err != nil {
        return "", err
    }

    nonce := make([]byte, gcm.NonceSize())
    if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
        return "", err
    }

    sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
    return base64.StdEncoding.EncodeToString(sealed), nil
}

func Decrypt(encoded, key string) (string, error) {
    gcm, err := gcmFor(key)
    if err != nil {
        return "", err
    }

    raw, err := base64.StdEncoding.DecodeString(encoded)
    if err != nil {
        return "", err
    }
    if len(raw) < gcm.NonceSize() {
        return "", errors.New("ciphertext too short")
    }

    nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
    plain, err := gcm.Open(nil, nonce, sealed, nil)
    if err != nil {
        return "", err
    }
    return string(plain), nil
}
