package domain

// chainNames maps Debank chain ids to display names.
var chainNames = map[string]string{
	"eth":     "Ethereum",
	"arb":     "Arbitrum",
	"base":    "Base",
	"scrl":    "Scroll",
	"avax":    "Avalanche",
	"era":     "zkSync Era",
	"bsc":     "BNB Chain",
	"op":      "Optimism",
	"linea":   "Linea",
	"corn":    "Corn",
	"zircuit": "Zircuit",
	"bera":    "Berachain",
	"blast":   "Blast",
	"swell":   "SwellChain",
	"uni":     "Unichain",
	"sonic":   "Sonic",
	"hyper":   "Hyperliquid",
	"katana":  "Katana",
	"plasma":  "Plasma",
}

// chainOrder keeps a stable listing order for config defaults and filters.
var chainOrder = []string{
	"eth", "arb", "base", "scrl", "avax", "era", "bsc", "op", "linea",
	"corn", "zircuit", "bera", "blast", "swell", "uni", "sonic", "hyper",
	"katana", "plasma",
}

// SupportedChainIDs returns all chain ids queried against Debank, in stable order.
func SupportedChainIDs() []string {
	ids := make([]string, len(chainOrder))
	copy(ids, chainOrder)
	return ids
}

// ChainName resolves a Debank chain id to its display name.
// Unknown ids pass through unchanged so new chains still render.
func ChainName(id string) string {
	if name, ok := chainNames[id]; ok {
		return name
	}
	return id
}

// ChainDisplayNames returns display names for the given chain ids.
func ChainDisplayNames(ids []string) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = ChainName(id)
	}
	return names
}
