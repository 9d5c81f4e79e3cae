// Package codegen produces the scannable codes printed on tickets and
// coupons.  Codes are fixed-length, uppercase and drawn from an alphabet
// without lookalike characters so door staff can read them out loud when
// a scanner misfires.
package codegen

import "crypto/rand"

// Length is the number of characters in every generated code.
const Length = 10

// alphabet has 32 symbols: A-Z and 2-9 minus I, O, 0 and 1.  With 32
// symbols a byte modulo the alphabet size is unbiased, and ten characters
// give 2^50 combinations, so collisions within one scope are negligible
// by construction.  The issuer still retries on the unique-constraint
// violation at insert time rather than trusting the odds.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Generate returns a new random code.  It is a pure function of the
// entropy source and performs no I/O besides reading crypto/rand.
func Generate() (string, error) {
    buf := make([]byte, Length)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    out := make([]byte, Length)
    for i, b := range buf {
        out[i] = alphabet[int(b)%len(alphabet)]
    }
    return string(out), nil
}
