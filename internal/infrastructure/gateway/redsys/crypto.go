package redsys

import (
	"crypto/des"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"
)

// signParameters подписывает base64-строку merchant-параметров.
//
// Схема Redsys HMAC_SHA256_V1:
//  1. merchant key (base64) шифрует номер заказа 3DES-CBC с нулевым IV -
//     получается ключ конкретной операции;
//  2. HMAC-SHA256 этим ключом по base64-строке параметров;
//  3. результат кодируется base64.
func signParameters(encodedParams, orderNumber, secretKey string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(secretKey)
	if err != nil {
		return "", fmt.Errorf("merchant key is not valid base64: %w", err)
	}

	operationKey, err := deriveOperationKey(key, orderNumber)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, operationKey)
	mac.Write([]byte(encodedParams))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// deriveOperationKey шифрует номер заказа 3DES-CBC (нулевой IV, zero padding).
func deriveOperationKey(merchantKey []byte, orderNumber string) ([]byte, error) {
	block, err := des.NewTripleDESCipher(merchantKey)
	if err != nil {
		return nil, fmt.Errorf("invalid merchant key length: %w", err)
	}

	plaintext := zeroPad([]byte(orderNumber), des.BlockSize)
	ciphertext := make([]byte, len(plaintext))

	iv := make([]byte, des.BlockSize)
	prev := iv
	for i := 0; i < len(plaintext); i += des.BlockSize {
		chunk := make([]byte, des.BlockSize)
		for j := 0; j < des.BlockSize; j++ {
			chunk[j] = plaintext[i+j] ^ prev[j]
		}
		block.Encrypt(ciphertext[i:i+des.BlockSize], chunk)
		prev = ciphertext[i : i+des.BlockSize]
	}

	return ciphertext, nil
}

func zeroPad(data []byte, blockSize int) []byte {
	rem := len(data) % blockSize
	if rem == 0 && len(data) > 0 {
		return data
	}
	padded := make([]byte, len(data)+blockSize-rem)
	copy(padded, data)
	return padded
}

// newTransactionID генерирует DS_MERCHANT_ORDER: ровно 12 цифр,
// первые 4 обязаны быть цифрами по требованиям Redsys.
func newTransactionID() string {
	// столько цифр времени, сколько влезает, плюс случайный хвост
	base := time.Now().Unix() % 1_0000_0000 // 8 цифр
	n, err := rand.Int(rand.Reader, big.NewInt(10_000))
	if err != nil {
		n = big.NewInt(time.Now().UnixNano() % 10_000)
	}
	return fmt.Sprintf("%08d%04d", base, n.Int64())
}
