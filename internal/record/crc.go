package record

import "hash/crc32"

// CalculateCRC computes the CRC32 (IEEE) checksum of a frame body.
func CalculateCRC(body []byte) uint32 {
	return crc32.ChecksumIEEE(body)
}

// ValidateCRC returns true if checksum matches the CRC32 of body.
func ValidateCRC(body []byte, checksum uint32) bool {
	return CalculateCRC(body) == checksum
}
