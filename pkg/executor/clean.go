package executor

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
)

type taskHandleStopper struct {
	taskHandles []TaskHandle
	sync.Mutex
}

var globalTaskHandleStopper = &taskHandleStopper{}

// RegisterInterruptHandle waits for Interrupt signal and stops unconditionally
// all registered taskHandles before exiting. An operator abort must still run
// teardown for the in-flight process.
// Returned function stops everything explicitly and can be deferred.
func RegisterInterruptHandle() func() {
	return globalTaskHandleStopper.registerInterruptHandle()
}

func register(t TaskHandle) {
	globalTaskHandleStopper.register(t)
}

func (ths *taskHandleStopper) registerInterruptHandle() func() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		logrus.Debugf("clean: stopping all task handles on signal %v", <-c)
		ths.stopAllTaskHandles()
		os.Exit(1)
	}()
	return ths.stopAllTaskHandles
}

func (ths *taskHandleStopper) stopAllTaskHandles() {
	ths.Lock()
	defer ths.Unlock()
	// Stop in reverse order.
	for i := len(ths.taskHandles) - 1; i >= 0; i-- {
		taskHandle := ths.taskHandles[i]
		if taskHandle.Status() == TERMINATED {
			continue
		}
		logrus.Debugf("clean: stopping %v", taskHandle)
		if err := taskHandle.Stop(); err != nil {
			logrus.Errorf("clean: stopping %v failed: %v", taskHandle, err)
		}
	}
	ths.taskHandles = nil
}

func (ths *taskHandleStopper) register(t TaskHandle) {
	ths.Lock()
	defer ths.Unlock()
	ths.taskHandles = append(ths.taskHandles, t)
}
