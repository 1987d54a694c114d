package credentials

import (
	"crypto/rand"
	"math/big"
)

// OneTimeCodeLength is the number of digits in an emailed sign-in code
const OneTimeCodeLength = 6

const digits = "0123456789"

// GenerateOneTimeCode generates a random numeric sign-in code
func GenerateOneTimeCode() (string, error) {
	code := make([]byte, OneTimeCodeLength)

	for i := 0; i < OneTimeCodeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		code[i] = digits[num.Int64()]
	}

	return string(code), nil
}
