package uid

import (
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
)

// Snowflake generates time-sortable int64 ids.
//
// The node number is derived from the hostname so identical processes on
// different machines do not collide. Two processes on the same host would;
// these ids are row ids, not coordination primitives, and the store's
// constraints remain the source of truth for uniqueness.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake builds a generator with a hostname-derived node number.
func NewSnowflake() (*Snowflake, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(hostname))
	nodeNum := int64(h.Sum32() % 1024)

	node, err := snowflake.NewNode(nodeNum)
	if err != nil {
		return nil, err
	}

	return &Snowflake{node: node}, nil
}

// Generate returns a new snowflake id.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
