package id

import "github.com/google/uuid"

// UUIDGenerator issues random (v4) UUIDs for entity ids.
type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator { return UUIDGenerator{} }

func (UUIDGenerator) NewID() string { return uuid.NewString() }
