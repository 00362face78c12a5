package util

import "github.com/google/uuid"

type IdGenerator func() string

func NewId() string {
	return uuid.New().String()
}
