package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted records. Timestamps are stored as
// varint-encoded Unix microseconds, slices as a varint length followed by
// their elements.

var (
	IDMUS         = idMUS{}
	EntityMUS     = entityMUS{}
	HeadingMUS    = headingMUS{}
	SentenceMUS   = sentenceMUS{}
	CheckpointMUS = checkpointMUS{}
)

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	tmp, n, err := varint.Uint64.Unmarshal(bs)
	return ID(tmp), n, err
}

func (s idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (s idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

type timeMUS struct{}

var timeMicroMUS = timeMUS{}

func (s timeMUS) Marshal(v time.Time, bs []byte) (n int) {
	var micro int64
	if !v.IsZero() {
		micro = v.UnixMicro()
	}
	return varint.Int64.Marshal(micro, bs)
}

func (s timeMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	micro, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || micro == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micro).UTC(), n, nil
}

func (s timeMUS) Size(v time.Time) (size int) {
	var micro int64
	if !v.IsZero() {
		micro = v.UnixMicro()
	}
	return varint.Int64.Size(micro)
}

type idsMUS struct{}

var idSliceMUS = idsMUS{}

func (s idsMUS) Marshal(v []ID, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, id := range v {
		n += IDMUS.Marshal(id, bs[n:])
	}
	return
}

func (s idsMUS) Unmarshal(bs []byte) (v []ID, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length > len(bs)-n {
		return nil, n, ErrCorruptRecord
	}
	if length == 0 {
		return nil, n, nil
	}
	v = make([]ID, length)
	var n1 int
	for i := range v {
		v[i], n1, err = IDMUS.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (s idsMUS) Size(v []ID) (size int) {
	size = varint.Int.Size(len(v))
	for _, id := range v {
		size += IDMUS.Size(id)
	}
	return
}

type entityMUS struct{}

func (s entityMUS) Marshal(v Entity, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	return n + ord.String.Marshal(v.Text, bs[n:])
}

func (s entityMUS) Unmarshal(bs []byte) (v Entity, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s entityMUS) Size(v Entity) (size int) {
	size = IDMUS.Size(v.Id)
	return size + ord.String.Size(v.Text)
}

type headingMUS struct{}

func (s headingMUS) Marshal(v Heading, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.ParentId, bs[n:])
	n += ord.String.Marshal(v.Label, bs[n:])
	return n + varint.Int.Marshal(v.Depth, bs[n:])
}

func (s headingMUS) Unmarshal(bs []byte) (v Heading, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.ParentId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Label, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Depth, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	return
}

func (s headingMUS) Size(v Heading) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.ParentId)
	size += ord.String.Size(v.Label)
	return size + varint.Int.Size(v.Depth)
}

type sentenceMUS struct{}

func (s sentenceMUS) Marshal(v Sentence, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.HeadingId, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += ord.String.Marshal(v.Annotations, bs[n:])
	n += idSliceMUS.Marshal(v.EntityIds, bs[n:])
	return n + timeMicroMUS.Marshal(v.InsertedAt, bs[n:])
}

func (s sentenceMUS) Unmarshal(bs []byte) (v Sentence, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.HeadingId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Annotations, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.EntityIds, n1, err = idSliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = timeMicroMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s sentenceMUS) Size(v Sentence) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.HeadingId)
	size += ord.String.Size(v.Text)
	size += ord.String.Size(v.Annotations)
	size += idSliceMUS.Size(v.EntityIds)
	return size + timeMicroMUS.Size(v.InsertedAt)
}

type checkpointMUS struct{}

func (s checkpointMUS) Marshal(v Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(v.ProcessorType, bs)
	n += IDMUS.Marshal(v.LastId, bs[n:])
	return n + timeMicroMUS.Marshal(v.UpdatedAt, bs[n:])
}

func (s checkpointMUS) Unmarshal(bs []byte) (v Checkpoint, n int, err error) {
	v.ProcessorType, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.LastId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timeMicroMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s checkpointMUS) Size(v Checkpoint) (size int) {
	size = ord.String.Size(v.ProcessorType)
	size += IDMUS.Size(v.LastId)
	return size + timeMicroMUS.Size(v.UpdatedAt)
}
