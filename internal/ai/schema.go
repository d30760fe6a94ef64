package ai

// swapsSchemaDescription describes the ClickHouse swaps table for NL→SQL
// prompting. It mirrors the table created by cache.NewClickHouseStore.
const swapsSchemaDescription = `
Database: mintclub
Table: swaps

Columns:
  - tx_hash      String    -- transaction hash (unique id)
  - block_number UInt64    -- block the transaction was mined in
  - timestamp    DateTime  -- confirmation time (UTC)
  - kind         String    -- one of swap, buy, sell, zap_buy, zap_sell
  - account      String    -- wallet that sent the transaction
  - target       String    -- contract called: UniversalRouter, Bond or Zap
  - token_in     String    -- address of the token spent (0xEeee... is native ETH)
  - token_out    String    -- address of the token received
  - amount_in    UInt256   -- base units of token_in
  - amount_out   UInt256   -- base units of token_out, quoted or simulated
  - min_out      UInt256   -- minimum output enforced on chain
  - route        String    -- route description, e.g. "via WETH (fees: 0.3% → 1%)"
  - gas_used     UInt64    -- gas used by the transaction

Notes:
  - Amounts are raw integers. Most tokens have 18 decimals and USDC has 6, so
    divide by 1e18 (or 1e6) with toFloat64 when a human amount is needed.
  - Time filters should use timestamp, e.g. timestamp >= now() - INTERVAL 24 HOUR.
`
