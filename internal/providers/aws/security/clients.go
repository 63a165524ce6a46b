package awssecurity

import "github.com/pankaj-dahiya-devops/secguardrails/internal/providers/aws/common"

// regionalClients returns the clients the collector uses for one region.
// Injection point: tests replace it to hand back fake clients.
type regionalClients func(region string) *common.ClientSet
