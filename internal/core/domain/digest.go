package domain

import (
	"encoding/binary"

	"github.com/agentcore/escrowd/pkg/sigverify"
)

const lockDigestTag = "escrow.lock"

// HashPreimage returns the hash lock committing to preimage.
func HashPreimage(preimage []byte) Hash {
	return sigverify.Keccak256(preimage)
}

// PreimageDigest is the message buyer and seller sign to authorize a
// withdrawal with the preimage: keccak256(trade_id ‖ preimage).
func PreimageDigest(tradeID TradeID, preimage []byte) Hash {
	return sigverify.Keccak256(tradeID[:], preimage)
}

// ArbitrationDigest is the message 2 of the 3 parties sign to release the
// deposit to recipient: keccak256(trade_id ‖ recipient).
func ArbitrationDigest(tradeID TradeID, recipient Address) Hash {
	return sigverify.Keccak256(tradeID[:], recipient[:])
}

// LockDigest is the message a buyer signs to request a lock through a
// remote interface.
func LockDigest(args LockArgs) Hash {
	duration := make([]byte, 8)
	binary.BigEndian.PutUint64(duration, uint64(args.LockDuration))
	amount := make([]byte, 8)
	binary.BigEndian.PutUint64(amount, args.Amount)

	return sigverify.Keccak256(
		[]byte(lockDigestTag),
		args.TradeID[:],
		args.Seller[:],
		args.Arbiter[:],
		args.HashLock[:],
		duration,
		amount,
	)
}
