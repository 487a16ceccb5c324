package l6batch

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/banshee-data/pointseg/internal/pointseg"
	"github.com/banshee-data/pointseg/internal/pointseg/l1sources"
	"github.com/banshee-data/pointseg/internal/pointseg/l5dataset"
)

// Batch is the concatenation of several samples. Row k of Coords is
// (scene-in-batch, x, y, z) with coordinates truncated toward zero.
// InverseMap entries stay relative to their own sample.
type Batch struct {
	Kind       string           `msgpack:"kind"`
	Coords     [][4]int32       `msgpack:"coords"`
	Feats      l1sources.Matrix `msgpack:"feats"`
	DeepFeats  l1sources.Matrix `msgpack:"deep_feats,omitempty"`
	Labels     []int64          `msgpack:"labels"`
	InverseMap []int            `msgpack:"inverse_map"`
	Region     []int64          `msgpack:"region"`
	Pseudo     []int64          `msgpack:"pseudo,omitempty"`
	Inds       []int            `msgpack:"inds,omitempty"`
	Indices    []int            `msgpack:"indices"`
	SceneNames []string         `msgpack:"scene_names"`
}

// Len returns the total number of voxels in the batch.
func (b *Batch) Len() int { return len(b.Coords) }

type parts struct {
	deep   bool
	pseudo bool
	inds   bool
}

// CollateDistill batches feature distillation samples.
func CollateDistill(samples []*l5dataset.Sample) (*Batch, error) {
	return collate(l5dataset.KindDistill, samples, parts{deep: true})
}

// CollateTrain batches clustering and training samples. Inds are offset by
// the number of voxels of the samples before them.
func CollateTrain(samples []*l5dataset.Sample) (*Batch, error) {
	return collate(l5dataset.KindTrain, samples, parts{pseudo: true, inds: true})
}

// CollateTest batches evaluation samples.
func CollateTest(samples []*l5dataset.Sample) (*Batch, error) {
	return collate(l5dataset.KindTest, samples, parts{})
}

// Collate picks the collator matching the samples' kind. Mixing kinds is an
// error.
func Collate(samples []*l5dataset.Sample) (*Batch, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("collate: empty batch: %w", pointseg.ErrPrecondition)
	}
	kind := samples[0].Kind
	for _, s := range samples[1:] {
		if s.Kind != kind {
			return nil, fmt.Errorf("collate: mixed %v and %v samples: %w", kind, s.Kind, pointseg.ErrPrecondition)
		}
	}
	switch kind {
	case l5dataset.KindDistill:
		return CollateDistill(samples)
	case l5dataset.KindCluster, l5dataset.KindTrain:
		return CollateTrain(samples)
	case l5dataset.KindTest:
		return CollateTest(samples)
	default:
		return nil, fmt.Errorf("collate: %v: %w", kind, pointseg.ErrPrecondition)
	}
}

func collate(kind l5dataset.Kind, samples []*l5dataset.Sample, want parts) (*Batch, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("collate %v: empty batch: %w", kind, pointseg.ErrPrecondition)
	}
	b := &Batch{Kind: samples[0].Kind.String()}
	feats := make([]l1sources.Matrix, 0, len(samples))
	var deep []l1sources.Matrix
	offset := 0
	for id, s := range samples {
		m := s.Voxels()
		if err := checkSample(s, want); err != nil {
			return nil, fmt.Errorf("collate %v sample %d (%s): %w", kind, id, s.SceneName, err)
		}
		for _, c := range s.Coords {
			b.Coords = append(b.Coords, [4]int32{int32(id), int32(c.X), int32(c.Y), int32(c.Z)})
		}
		feats = append(feats, s.Feats)
		if want.deep {
			deep = append(deep, s.DeepFeats)
		}
		b.Labels = append(b.Labels, s.Labels...)
		b.InverseMap = append(b.InverseMap, s.InverseMap...)
		b.Region = append(b.Region, s.Region...)
		if want.pseudo {
			b.Pseudo = append(b.Pseudo, s.Pseudo...)
		}
		if want.inds {
			for _, v := range s.Inds {
				b.Inds = append(b.Inds, v+offset)
			}
		}
		b.Indices = append(b.Indices, s.Index)
		b.SceneNames = append(b.SceneNames, s.SceneName)
		offset += m
	}

	var err error
	if b.Feats, err = l1sources.AppendRows(feats...); err != nil {
		return nil, fmt.Errorf("collate %v feats: %w", kind, err)
	}
	if want.deep {
		if b.DeepFeats, err = l1sources.AppendRows(deep...); err != nil {
			return nil, fmt.Errorf("collate %v deep features: %w", kind, err)
		}
	}
	return b, nil
}

func checkSample(s *l5dataset.Sample, want parts) error {
	m := s.Voxels()
	if err := pointseg.CheckLen("feats", m, s.Feats.Rows); err != nil {
		return err
	}
	if want.deep {
		if err := pointseg.CheckLen("deep features", m, s.DeepFeats.Rows); err != nil {
			return err
		}
	}
	if want.pseudo && s.Pseudo != nil {
		if err := pointseg.CheckLen("pseudo labels", m, len(s.Pseudo)); err != nil {
			return err
		}
	}
	if want.inds && s.Inds != nil {
		if err := pointseg.CheckLen("inds", m, len(s.Inds)); err != nil {
			return err
		}
	}
	return nil
}

// WriteMsgpack encodes the batch to w.
func (b *Batch) WriteMsgpack(w io.Writer) error {
	if err := msgpack.NewEncoder(w).Encode(b); err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	return nil
}

// ReadBatch decodes one batch written by WriteMsgpack.
func ReadBatch(r io.Reader) (*Batch, error) {
	var b Batch
	if err := msgpack.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	return &b, nil
}
