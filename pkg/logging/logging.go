package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	relayID     string
	relayIDOnce sync.Once

	// Async logging channel and worker
	logChan   chan string
	logWorker sync.Once
	logWg     sync.WaitGroup
	logMu     sync.Mutex
)

// initLogWorker starts the async log worker goroutine
func initLogWorker() {
	logMu.Lock()
	defer logMu.Unlock()

	logWorker.Do(func() {
		// Buffered so hot paths never block on the logger.
		logChan = make(chan string, 1000)

		logWg.Add(1)
		go func() {
			defer logWg.Done()
			for msg := range logChan {
				log.Print(msg)
			}
		}()
	})
}

// GetRelayID returns the unique relay instance ID for this process
func GetRelayID() string {
	relayIDOnce.Do(func() {
		// Try RELAY_ID first (allows a fixed ID), then POD_NAME, then HOSTNAME,
		// then generate a short random ID.
		relayID = os.Getenv("RELAY_ID")
		if relayID == "" {
			relayID = os.Getenv("POD_NAME")
		}
		if relayID == "" {
			relayID = os.Getenv("HOSTNAME")
		}
		if relayID == "" {
			relayID = "relay-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
		}
	})
	return relayID
}

// Logf logs a formatted message with relay ID prefix (async, non-blocking)
func Logf(format string, v ...interface{}) {
	initLogWorker()
	msg := fmt.Sprintf(format, v...)
	logMsg := fmt.Sprintf("[relay=%s] %s", GetRelayID(), msg)

	// Non-blocking send: if the channel is full, fall back to sync logging
	select {
	case logChan <- logMsg:
	default:
		log.Print(logMsg)
	}
}

// Log logs a message with relay ID prefix (async, non-blocking)
func Log(v ...interface{}) {
	initLogWorker()
	msg := fmt.Sprint(v...)
	logMsg := fmt.Sprintf("[relay=%s] %s", GetRelayID(), msg)

	select {
	case logChan <- logMsg:
	default:
		log.Print(logMsg)
	}
}

// Fatalf logs a fatal error with relay ID prefix and exits (synchronous)
func Fatalf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	log.Fatalf("[relay=%s] %s", GetRelayID(), msg)
}

// Flush waits for all pending log messages to be written
func Flush() {
	logMu.Lock()
	defer logMu.Unlock()

	if logChan != nil {
		close(logChan)
		logWg.Wait()
		logChan = nil
		logWorker = sync.Once{}
	}
}
