package debank

// Token is one entry of the all_token_list response, also reused for the
// nested supply/reward/borrow token lists of protocol positions. Amounts and
// prices arrive as floats from the API; conversion to decimals happens in the
// fetcher when rows are built.
type Token struct {
	Chain           string  `json:"chain"`
	ChainID         string  `json:"chain_id"`
	Symbol          string  `json:"symbol"`
	DisplaySymbol   string  `json:"display_symbol"`
	OptimizedSymbol string  `json:"optimized_symbol"`
	Amount          float64 `json:"amount"`
	Price           float64 `json:"price"`
}

// PreferredSymbol picks the best available symbol: optimized, then display,
// then the raw symbol.
func (t Token) PreferredSymbol() string {
	if t.OptimizedSymbol != "" {
		return t.OptimizedSymbol
	}
	if t.DisplaySymbol != "" {
		return t.DisplaySymbol
	}
	return t.Symbol
}

// ChainRef returns whichever chain field the API populated.
func (t Token) ChainRef() string {
	if t.Chain != "" {
		return t.Chain
	}
	return t.ChainID
}

// Protocol is one entry of the all_complex_protocol_list response.
type Protocol struct {
	Name              string          `json:"name"`
	Chain             string          `json:"chain"`
	PortfolioItemList []PortfolioItem `json:"portfolio_item_list"`
}

// PortfolioItem is one position inside a protocol; Name carries the
// classification ("Liquidity Pool", "Lending", ...).
type PortfolioItem struct {
	Name   string         `json:"name"`
	Detail PositionDetail `json:"detail"`
	Pool   Pool           `json:"pool"`
}

// PositionDetail holds the token legs of one position.
type PositionDetail struct {
	Description     string  `json:"description"`
	SupplyTokenList []Token `json:"supply_token_list"`
	RewardTokenList []Token `json:"reward_token_list"`
	BorrowTokenList []Token `json:"borrow_token_list"`
}

// Pool identifies an on-chain liquidity pool.
type Pool struct {
	ID string `json:"id"`
}
