// Package service contains small infrastructure adapters that back the
// application layer's dependency interfaces.
package service

import "github.com/google/uuid"

// IDGeneratorImpl implements command.IDGenerator.
type IDGeneratorImpl struct{}

func NewIDGenerator() *IDGeneratorImpl {
	return &IDGeneratorImpl{}
}

func (g *IDGeneratorImpl) GenerateID() string {
	return uuid.New().String()
}
