package model

// LogFillEventData is the decoded 0x Exchange v1 LogFill payload.
type LogFillEventData struct {
	Maker                  string `json:"maker"`
	Taker                  string `json:"taker"`
	FeeRecipient           string `json:"fee_recipient"`
	MakerToken             string `json:"maker_token"`
	TakerToken             string `json:"taker_token"`
	FilledMakerTokenAmount string `json:"filled_maker_token_amount"`
	FilledTakerTokenAmount string `json:"filled_taker_token_amount"`
	PaidMakerFee           string `json:"paid_maker_fee"`
	PaidTakerFee           string `json:"paid_taker_fee"`
	Tokens                 string `json:"tokens"`
	OrderHash              string `json:"order_hash"`
}

// FillEventData is the decoded 0x Exchange v2 Fill payload.
type FillEventData struct {
	MakerAddress           string `json:"maker_address"`
	FeeRecipientAddress    string `json:"fee_recipient_address"`
	TakerAddress           string `json:"taker_address"`
	SenderAddress          string `json:"sender_address"`
	MakerAssetFilledAmount string `json:"maker_asset_filled_amount"`
	TakerAssetFilledAmount string `json:"taker_asset_filled_amount"`
	MakerFeePaid           string `json:"maker_fee_paid"`
	TakerFeePaid           string `json:"taker_fee_paid"`
	OrderHash              string `json:"order_hash"`
	MakerAssetData         string `json:"maker_asset_data"`
	TakerAssetData         string `json:"taker_asset_data"`
}

// FillV3EventData is the decoded 0x Exchange v3 Fill payload. V3 adds fee
// asset data and the protocol fee.
type FillV3EventData struct {
	FillEventData
	MakerFeeAssetData string `json:"maker_fee_asset_data"`
	TakerFeeAssetData string `json:"taker_fee_asset_data"`
	ProtocolFeePaid   string `json:"protocol_fee_paid"`
}
