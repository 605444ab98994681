package idgen

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Ids are read as float64 by JSON clients, so the layout keeps them within
// 53 bits: 41 bits of ms since 2025-01-01 UTC, 6 node bits, 6 step bits.
const (
	nodeBits = 6
	stepBits = 6

	// MaxID is the largest id a JSON client can represent exactly.
	MaxID = 1<<53 - 1

	// MaxServerNode bounds NODE_ID. Nodes above it are handed out to
	// short-lived processes by EphemeralNode.
	MaxServerNode = 1<<(nodeBits-1) - 1
	maxNode       = 1<<nodeBits - 1
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func init() {
	snowflake.Epoch = epoch.UnixMilli()
	snowflake.NodeBits = nodeBits
	snowflake.StepBits = stepBits
}

// Generator hands out strictly increasing int64 ids. Ids from generators
// with distinct node numbers never collide.
type Generator struct {
	node *snowflake.Node
}

func New(nodeID int64) (*Generator, error) {
	const op = "idgen.New"

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Generator{node: node}, nil
}

func (g *Generator) Next() int64 {
	return g.node.Generate().Int64()
}

// EphemeralNode derives a node number for a process that is not configured
// with NODE_ID. The result is always above MaxServerNode, so it never
// collides with a server sharing the same backend.
func EphemeralNode(seed string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))

	span := uint32(maxNode - MaxServerNode)
	return int64(MaxServerNode + 1 + h.Sum32()%span)
}
