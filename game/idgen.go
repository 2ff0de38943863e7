package game

import "github.com/google/uuid"

type idgen struct{}

func (idgen) Generate() string {
	return uuid.NewString()
}

func NewIdGen() idgen {
	return idgen{}
}
