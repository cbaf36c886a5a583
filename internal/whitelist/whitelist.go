// Package whitelist holds the static token tables used to filter spam
// and dusting transfers out of fetched history. Only transfers of
// tokens listed here are ever surfaced; everything else is dropped at
// normalization time.
package whitelist

import "strings"

// TokenMeta describes a whitelisted token
type TokenMeta struct {
	Symbol   string
	Name     string
	Decimals int32
}

// Table is an immutable set of per-chain token whitelists. Contract
// addresses and mints are stored lowercased so lookups are
// case-insensitive.
type Table struct {
	evm    map[int64]map[string]TokenMeta
	solana map[string]TokenMeta
	tron   map[string]TokenMeta
}

// NewTable builds a table from raw maps, normalizing keys to lowercase.
// Used by tests to build small fixtures.
func NewTable(evm map[int64]map[string]TokenMeta, solana, tron map[string]TokenMeta) *Table {
	t := &Table{
		evm:    make(map[int64]map[string]TokenMeta, len(evm)),
		solana: make(map[string]TokenMeta, len(solana)),
		tron:   make(map[string]TokenMeta, len(tron)),
	}
	for chainID, tokens := range evm {
		m := make(map[string]TokenMeta, len(tokens))
		for contract, meta := range tokens {
			m[strings.ToLower(contract)] = meta
		}
		t.evm[chainID] = m
	}
	for mint, meta := range solana {
		t.solana[strings.ToLower(mint)] = meta
	}
	for contract, meta := range tron {
		t.tron[strings.ToLower(contract)] = meta
	}
	return t
}

// EVMToken looks up a token by chain id and contract address.
func (t *Table) EVMToken(chainID int64, contract string) (TokenMeta, bool) {
	tokens, ok := t.evm[chainID]
	if !ok {
		return TokenMeta{}, false
	}
	meta, ok := tokens[strings.ToLower(contract)]
	return meta, ok
}

// EVMContracts returns the whitelisted contracts for a chain id. The
// returned map is a copy and safe to iterate while other goroutines use
// the table.
func (t *Table) EVMContracts(chainID int64) map[string]TokenMeta {
	tokens := t.evm[chainID]
	out := make(map[string]TokenMeta, len(tokens))
	for contract, meta := range tokens {
		out[contract] = meta
	}
	return out
}

// SolanaMint looks up an SPL token by mint address.
func (t *Table) SolanaMint(mint string) (TokenMeta, bool) {
	meta, ok := t.solana[strings.ToLower(mint)]
	return meta, ok
}

// TronContract looks up a TRC-20 token by contract address.
func (t *Table) TronContract(contract string) (TokenMeta, bool) {
	meta, ok := t.tron[strings.ToLower(contract)]
	return meta, ok
}

// Builtin returns the production token tables.
func Builtin() *Table {
	return builtin
}

var builtin = NewTable(
	map[int64]map[string]TokenMeta{
		// Ethereum mainnet
		1: {
			"0xdac17f958d2ee523a2206206994597c13d831ec7": {Symbol: "USDT", Name: "Tether USD", Decimals: 6},
			"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48": {Symbol: "USDC", Name: "USD Coin", Decimals: 6},
			"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2": {Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18},
			"0x6b175474e89094c44da98b954eedeac495271d0f": {Symbol: "DAI", Name: "Dai Stablecoin", Decimals: 18},
			"0x2260fac5e5542a773aa44fbcfedf7c193bc2c599": {Symbol: "WBTC", Name: "Wrapped Bitcoin", Decimals: 8},
			"0x7d1afa7b718fb893db30a3abc0cfc608aacfebb0": {Symbol: "MATIC", Name: "Matic Token (Legacy)", Decimals: 18},
			"0x455e53cbb86018ac2b8092fdcd39d8444affc3f6": {Symbol: "POL", Name: "Polygon Ecosystem Token", Decimals: 18},
			"0x514910771af9ca656af840dff83e8264ecf986ca": {Symbol: "LINK", Name: "ChainLink Token", Decimals: 18},
			"0x1f9840a85d5af5bf1d1762f925bdaddc4201f984": {Symbol: "UNI", Name: "Uniswap", Decimals: 18},
		},
		// Polygon
		137: {
			"0xc2132d05d31c914a87c6611c10748aeb04b58e8f": {Symbol: "USDT", Name: "Tether USD", Decimals: 6},
			"0x3c499c542cef5e3811e1192ce70d8cc03d5c3359": {Symbol: "USDC", Name: "USD Coin", Decimals: 6},
			"0x7ceb23fd6bc0add59e62ac25578270cff1b9f619": {Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18},
			"0x0d500b1d8e8ef31e21c99d1db9a6444d3adf1270": {Symbol: "WPOL", Name: "Wrapped POL", Decimals: 18},
			"0x8f3cf7ad23cd3cadbd9735aff958023239c6a063": {Symbol: "DAI", Name: "Dai Stablecoin", Decimals: 18},
			"0x1bfd67037b42cf73acf2047067bd4f2c47d9bfd6": {Symbol: "WBTC", Name: "Wrapped Bitcoin", Decimals: 8},
			"0x53e0bca35ec356bd5dddfebbd1fc0fd03fabad39": {Symbol: "LINK", Name: "ChainLink Token", Decimals: 18},
			"0xb33eaad8d922b1083446dc23f610c2567fb5180f": {Symbol: "UNI", Name: "Uniswap", Decimals: 18},
			"0xd6df932a45c0f255f85145f286ea0b292b21c90b": {Symbol: "AAVE", Name: "Aave Token", Decimals: 18},
		},
		// BSC
		56: {
			"0x55d398326f99059ff775485246999027b3197955": {Symbol: "USDT", Name: "Tether USD", Decimals: 18},
			"0x8ac76a51cc950d9822d68b83fe1ad97b32cd580d": {Symbol: "USDC", Name: "USD Coin", Decimals: 18},
			"0x2170ed0880ac9a755fd29b2688956bd959f933f8": {Symbol: "ETH", Name: "Ethereum Token", Decimals: 18},
			"0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c": {Symbol: "WBNB", Name: "Wrapped BNB", Decimals: 18},
			"0x1af3f329e8be154074d8769d1ffa4ee058b1dbc3": {Symbol: "DAI", Name: "Dai Token", Decimals: 18},
		},
		// Arbitrum
		42161: {
			"0xfd086bc7cd5c481dcc9c85ebe478a1c0b69fcbb9": {Symbol: "USDT", Name: "Tether USD", Decimals: 6},
			"0xaf88d065e77c8cc2239327c5edb3a432268e5831": {Symbol: "USDC", Name: "USD Coin", Decimals: 6},
			"0x82af49447d8a07e3bd95bd0d56f35241523fbab1": {Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18},
			"0xda10009cbd5d07dd0cecc66161fc93d7c9000da1": {Symbol: "DAI", Name: "Dai Stablecoin", Decimals: 18},
			"0x2f2a2543b76a4166549f7aab2e75bef0aefc5b0f": {Symbol: "WBTC", Name: "Wrapped BTC", Decimals: 8},
			"0x6ab707aca953edaefbc4fd23ba73294241490620": {Symbol: "aUSDT", Name: "Aave v3 USDT", Decimals: 6},
			"0x724dc807b04555b71ed48a6896b6f41593b8c637": {Symbol: "aUSDC", Name: "Aave v3 USDC", Decimals: 6},
			"0x912ce59144191c1204e64559fe8253a0e49e6548": {Symbol: "ARB", Name: "Arbitrum", Decimals: 18},
		},
		// Optimism
		10: {
			"0x94b008aa00579c1307b0ef2c499ad98a8ce58e58": {Symbol: "USDT", Name: "Tether USD", Decimals: 6},
			"0x0b2c639c533813f4aa9d7837caf62653d097ff85": {Symbol: "USDC", Name: "USD Coin", Decimals: 6},
			"0x4200000000000000000000000000000000000006": {Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18},
			"0xda10009cbd5d07dd0cecc66161fc93d7c9000da1": {Symbol: "DAI", Name: "Dai Stablecoin", Decimals: 18},
		},
		// Base
		8453: {
			"0x833589fcd6edb6e08f4c7c32d4f71b54bda02913": {Symbol: "USDC", Name: "USD Coin", Decimals: 6},
			"0x4200000000000000000000000000000000000006": {Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18},
			"0x50c5725949a6f0c72e6c4a641f24049a917db0cb": {Symbol: "DAI", Name: "Dai Stablecoin", Decimals: 18},
		},
	},
	// Solana SPL mints
	map[string]TokenMeta{
		"hnstrzjneey2qoyd5d6t48kw2xymyhwvgt61hm5bahj":  {Symbol: "HNST", Name: "Honest", Decimals: 6},
		"es9vmdgxea8x2fdjrqstqdh7j3z4ntfct3wkxyazxmwg": {Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		"es9vmfrzacrknmyfld9ryqo9q64i3dqvdwpgvtkdnkp":  {Symbol: "USDT", Name: "Tether USD", Decimals: 6},
		"hz1jovnivvgrgniiyveozevgz58xau3rkwx8eacqbct3": {Symbol: "PYTH", Name: "Pyth Network", Decimals: 6},
	},
	// Tron TRC-20 contracts
	map[string]TokenMeta{
		"tr7nhqjekqxgtci8q8zy4pl8otszgjlj6t": {Symbol: "USDT", Name: "Tether USD", Decimals: 6},
		"tekxitehnzsmse2xqrbj4w32run966rdz8": {Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		"tnuc9qb1rrps5cbwlmnmxxbjyfoydxjwfr": {Symbol: "WTRX", Name: "Wrapped TRX", Decimals: 6},
	},
)
