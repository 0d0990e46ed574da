package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"payment-router/internal/entities"
	internalErrors "payment-router/internal/errors"
	"time"
)

const (
	// KeySize is the width of an encoded send timestamp.
	KeySize = 8
	// RecordSize is an 8 byte amount followed by the correlation id.
	RecordSize = 8 + entities.CorrelationIdLength

	signBit = uint64(1) << 63
)

// EncodeKey encodes t as big-endian Unix milliseconds with the sign bit
// flipped, so comparing keys bytewise orders them by time.
func EncodeKey(t time.Time) []byte {
	key := make([]byte, KeySize)
	binary.BigEndian.PutUint64(key, uint64(t.UnixMilli())^signBit)
	return key
}

func DecodeKey(key []byte) (time.Time, error) {
	if len(key) != KeySize {
		return time.Time{}, fmt.Errorf("%w: key is %d bytes", internalErrors.ErrCorruptRecord, len(key))
	}
	ms := int64(binary.BigEndian.Uint64(key) ^ signBit)
	return time.UnixMilli(ms).UTC(), nil
}

func EncodeRecord(amount float64, correlationId string) ([]byte, error) {
	if len(correlationId) != entities.CorrelationIdLength {
		return nil, internalErrors.ErrInvalidCorrelationId
	}

	record := make([]byte, RecordSize)
	binary.BigEndian.PutUint64(record, math.Float64bits(amount))
	copy(record[8:], correlationId)
	return record, nil
}

func DecodeRecord(record []byte) (amount float64, correlationId string, err error) {
	if len(record) != RecordSize {
		return 0, "", fmt.Errorf("%w: record is %d bytes", internalErrors.ErrCorruptRecord, len(record))
	}
	amount = math.Float64frombits(binary.BigEndian.Uint64(record))
	return amount, string(record[8:]), nil
}
