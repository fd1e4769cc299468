// Copyright 2025 The Protobench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package crossrun

import "fmt"

// A MetricKind identifies one infrastructure metric family.
type MetricKind int

const (
	KindCPU MetricKind = iota
	KindMemory
	KindNetworkRX
	KindNetworkTX
)

// Kinds lists all metric kinds in output order.
var Kinds = []MetricKind{KindCPU, KindMemory, KindNetworkRX, KindNetworkTX}

func (k MetricKind) String() string {
	switch k {
	case KindCPU:
		return "cpu"
	case KindMemory:
		return "memory"
	case KindNetworkRX:
		return "network_rx"
	case KindNetworkTX:
		return "network_tx"
	}
	return fmt.Sprintf("MetricKind(%d)", int(k))
}

// OutputKey is the metric-kind key used in aggregate output records.
func (k MetricKind) OutputKey() string {
	switch k {
	case KindCPU:
		return "cpu_utilization"
	case KindMemory:
		return "memory_utilization"
	case KindNetworkRX:
		return "network_rx_bytes"
	case KindNetworkTX:
		return "network_tx_bytes"
	}
	return k.String()
}

// Unit is the CloudWatch unit reported for this kind.
func (k MetricKind) Unit() string {
	switch k {
	case KindCPU, KindMemory:
		return "Percent"
	}
	return "Bytes"
}

// FileToken is the metric-kind token used in per-run artifact file
// names (run_{n}_{service}_{token}_metrics.json).
func (k MetricKind) FileToken() string {
	switch k {
	case KindNetworkRX:
		return "network_rx_bytes"
	case KindNetworkTX:
		return "network_tx_bytes"
	}
	return k.String()
}

// DefaultPolicies returns the aggregation policy per metric kind:
// utilization kinds report the absolute maximum seen across runs,
// network kinds report the mean of per-run maxima.
func DefaultPolicies() map[MetricKind]Policy {
	return map[MetricKind]Policy{
		KindCPU:       AbsoluteMaximum,
		KindMemory:    AbsoluteMaximum,
		KindNetworkRX: MeanOfMaxima,
		KindNetworkTX: MeanOfMaxima,
	}
}
