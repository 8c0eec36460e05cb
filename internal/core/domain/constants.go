package domain

const (
	// TradeStatusUninitialized is the status of a trade id never locked.
	TradeStatusUninitialized TradeStatus = iota
	// TradeStatusLocked is the status of a trade holding its deposit.
	TradeStatusLocked
	// TradeStatusCompleted is the terminal status reached via the preimage
	// or the arbitration path.
	TradeStatusCompleted
	// TradeStatusRefunded is the terminal status reached via the timelock
	// refund path.
	TradeStatusRefunded
)

const (
	// MethodPreimage identifies a withdrawal authorized by the secret
	// preimage and by both buyer and seller.
	MethodPreimage WithdrawalMethod = "preimage"
	// MethodArbitration identifies a withdrawal authorized by 2 of the 3
	// trade parties.
	MethodArbitration WithdrawalMethod = "arbitration"
	// MethodRefund identifies the return of the deposit to the buyer after
	// the timelock expired.
	MethodRefund WithdrawalMethod = "refund"
)

const (
	// TradeIDLength is the size in bytes of a trade id.
	TradeIDLength = 32
	// PreimageLength is the size in bytes required for a preimage.
	PreimageLength = 32
	// MinDistinctSigners is the number of distinct parties required to
	// resolve a dispute.
	MinDistinctSigners = 2
)

var tradeStatusNames = map[TradeStatus]string{
	TradeStatusUninitialized: "UNINITIALIZED",
	TradeStatusLocked:        "LOCKED",
	TradeStatusCompleted:     "COMPLETED",
	TradeStatusRefunded:      "REFUNDED",
}
