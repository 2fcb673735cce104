package worker

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrDispatcherBusy   = errors.New("dispatcher queue is full")
	ErrDispatcherClosed = errors.New("dispatcher is closed")
)

type JobType int

const (
	Stop JobType = iota
	Run
)

// Task is the unit of work a client submits.
type Task func(ctx context.Context) error

type Job struct {
	Type     JobType
	ClientID string

	ctx    context.Context
	task   Task
	finish func(error)
}

func (j Job) execute() {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		err = j.task(j.ctx)
	}()
	j.finish(err)
}
