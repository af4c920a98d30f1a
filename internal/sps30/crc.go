// internal/sps30/crc.go
package sps30

// CRC-8 parameters used by Sensirion sensors for every 2-byte data word.
const (
	crcPolynomial = 0x31
	crcInit       = 0xFF
	crcHighBit    = 0x80
)

// Checksum computes the CRC-8 of exactly one data word.
// Polynomial 0x31, init 0xFF, MSB first, no reflection, no final XOR.
func Checksum(word [2]byte) byte {
	crc := byte(crcInit)

	for _, b := range word {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&crcHighBit != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}

	return crc
}
