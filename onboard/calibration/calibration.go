// Package calibration keeps per joint servo offsets across restarts.
package calibration

import (
	"fmt"
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/asdine/storm/v3"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const Bucket = "calibration"

var log = logrus.WithFields(logrus.Fields{"pkg": "calibration"})

// Offsets holds one integer offset in degrees per joint, indexed by leg.
type Offsets [][3]int

func Zero(chassis geometry.Chassis) Offsets {
	return make(Offsets, chassis.LegCount())
}

func (o Offsets) Clone() Offsets {
	c := make(Offsets, len(o))
	copy(c, o)
	return c
}

// Document is the stored form, {"leg0": [o0, o1, o2], ...}.
type Document map[string][3]int

func legKey(leg int) string {
	return fmt.Sprintf("leg%d", leg)
}

func (o Offsets) Document() Document {
	doc := make(Document, len(o))
	for leg, joints := range o {
		doc[legKey(leg)] = joints
	}
	return doc
}

// Offsets reads a document back for a chassis. Every missing leg is reported;
// the legs that were present are still returned.
func (d Document) Offsets(chassis geometry.Chassis) (o Offsets, err error) {
	o = Zero(chassis)
	for leg := range o {
		joints, ok := d[legKey(leg)]
		if !ok {
			err = multierr.Append(err, pkgerrors.Errorf("%s missing", legKey(leg)))
			continue
		}
		o[leg] = joints
	}
	return
}

// Store is where offsets live between runs.
type Store interface {
	Load(chassis geometry.Chassis) (Offsets, error)
	Save(chassis geometry.Chassis, o Offsets) error
	Close() error
}

// StormStore keeps one document per chassis in a storm key value bucket.
type StormStore struct {
	db    *storm.DB
	owned bool
}

// Open creates or opens a database file used only for calibration.
func Open(path string) (*StormStore, error) {
	db, err := storm.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "open calibration db %s", path)
	}
	return &StormStore{db: db, owned: true}, nil
}

// NewStormStore shares a database the caller keeps open.
func NewStormStore(db *storm.DB) *StormStore {
	return &StormStore{db: db}
}

func (s *StormStore) Load(chassis geometry.Chassis) (Offsets, error) {
	var doc Document
	if err := s.db.Get(Bucket, chassis.CalibrationKey(), &doc); err != nil {
		if pkgerrors.Cause(err) == storm.ErrNotFound {
			return nil, errors.ErrNoCalibration
		}
		return nil, pkgerrors.Wrapf(err, "read %s", chassis.CalibrationKey())
	}

	o, err := doc.Offsets(chassis)
	if err != nil {
		log.WithError(err).WithField("key", chassis.CalibrationKey()).Warn("calibration incomplete")
	}
	return o, nil
}

func (s *StormStore) Save(chassis geometry.Chassis, o Offsets) error {
	if len(o) != chassis.LegCount() {
		return errors.Invalid("%d legs of offsets for a %s", len(o), chassis)
	}
	if err := s.db.Set(Bucket, chassis.CalibrationKey(), o.Document()); err != nil {
		return pkgerrors.Wrapf(err, "write %s", chassis.CalibrationKey())
	}
	log.WithField("key", chassis.CalibrationKey()).Info("calibration saved")
	return nil
}

// Close only closes a database this store opened.
func (s *StormStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
