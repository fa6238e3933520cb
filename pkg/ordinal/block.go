package ordinal

// TxInput is a transaction input as required by the flow engine's
// node-pipeline contract (spec §6): a reference to a previously
// created output.
type TxInput struct {
	PrevTxid [32]byte
	PrevVout uint32
}

// TxOutput is a transaction output as required by spec §6: a value in
// satoshis and an opaque script. The engine never interprets Script;
// it is carried only for the best-effort inscription-marker scan.
type TxOutput struct {
	ValueSats uint64
	Script    []byte
}

// Tx is the minimal transaction shape the flow engine needs from the
// node pipeline.
type Tx struct {
	Txid       [32]byte
	Inputs     []TxInput
	Outputs    []TxOutput
	IsCoinbase bool
}

// Block is the minimal block shape passed to ConnectBlock/DisconnectBlock.
type Block struct {
	Hash     string
	PrevHash string
	Height   int32
	Txs      []Tx
}
