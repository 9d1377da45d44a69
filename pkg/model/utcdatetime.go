package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/kart-io/mongokit/pkg/utils/json"
)

// UTCDatetime is a time.Time that only holds UTC values.
//
// Values without an explicit zone are taken as UTC, zero offsets are
// normalised to time.UTC and any other offset is rejected.
type UTCDatetime struct {
	time.Time
}

// Layouts accepted by ParseUTCDatetime, tried in order.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// EnsureUTC validates t and returns it in time.UTC.
func EnsureUTC(t time.Time) (time.Time, error) {
	if t.Location() == time.UTC {
		return t, nil
	}
	if _, offset := t.Zone(); offset != 0 {
		return time.Time{}, ErrNonUTCTime
	}
	return t.UTC(), nil
}

// NewUTCDatetime wraps t after validating it with EnsureUTC.
func NewUTCDatetime(t time.Time) (UTCDatetime, error) {
	u, err := EnsureUTC(t)
	if err != nil {
		return UTCDatetime{}, err
	}
	return UTCDatetime{Time: u}, nil
}

// NowUTC returns the current time as a UTCDatetime.
func NowUTC() UTCDatetime {
	return UTCDatetime{Time: time.Now().UTC()}
}

// ParseUTCDatetime parses ISO 8601 style dates and datetimes.
// Inputs without a zone designator are interpreted as UTC.
func ParseUTCDatetime(s string) (UTCDatetime, error) {
	var lastErr error
	for _, layout := range datetimeLayouts {
		// time.Parse yields UTC for inputs without a zone.
		t, err := time.Parse(layout, s)
		if err != nil {
			lastErr = err
			continue
		}
		return NewUTCDatetime(t)
	}
	return UTCDatetime{}, lastErr
}

// MarshalJSON encodes the value as an RFC 3339 string.
func (u UTCDatetime) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Time.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts every format ParseUTCDatetime does.
func (u *UTCDatetime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseUTCDatetime(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// MarshalBSONValue stores the value as a BSON datetime.
func (u UTCDatetime) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(u.Time.UTC())
}

// UnmarshalBSONValue reads a BSON datetime.
func (u *UTCDatetime) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var tm time.Time
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&tm); err != nil {
		return err
	}
	u.Time = tm.UTC()
	return nil
}
