package codes

import "crypto/rand"

// Confirmation number alphabet leaves out 0/O/1/I so support staff can
// read the number back over the phone without ambiguity.
const confirmationPool = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const confirmationLength = 24

type ConfirmationNumberGenerator interface {
	Generate() string
}

type RandomConfirmationNumberGenerator struct{}

func (RandomConfirmationNumberGenerator) Generate() string {
	buf := make([]byte, confirmationLength)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failing means the host is broken
	}
	for i, b := range buf {
		buf[i] = confirmationPool[int(b)%len(confirmationPool)]
	}
	return string(buf)
}
