package sharedstore

import "fmt"

const (
	registryHashKey  = "sites:config"
	presenceKeyScan  = "workers:*"
	registryChannel  = "site-config-updates"
	syncLockKey      = "sync:lock"
)

const (
	measurementTTLSeconds = 600
	presenceTTLSeconds    = 60
	syncLockTTLSeconds    = 60
)

func measurementKey(siteID, workerID string) string {
	return fmt.Sprintf("checks:%s:%s", siteID, workerID)
}

func presenceKey(workerID string) string {
	return fmt.Sprintf("workers:%s", workerID)
}
