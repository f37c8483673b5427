package introspect

// systemFileName is the file name reported for errors in the system model.
const systemFileName = "@org.hyperledger.composer.system.cto"

// systemModel declares the core types every other model extends implicitly,
// plus the records the runtime keeps about submitted transactions.
const systemModel = `namespace org.hyperledger.composer.system

/**
 * Base type of all assets.
 */
abstract asset Asset {
}

/**
 * Base type of all participants.
 */
abstract participant Participant {
}

/**
 * Base type of all transactions.
 */
abstract transaction Transaction identified by transactionId {
  o String transactionId
  o DateTime timestamp
}

/**
 * Base type of all events.
 */
abstract event Event identified by eventId {
  o String eventId
  o DateTime timestamp
}

/**
 * Record of a transaction submitted to the network.
 */
asset HistorianRecord identified by transactionId {
  o String transactionId
  o String transactionType
  --> Transaction transactionInvoked
  --> Participant participantInvoking optional
  o Event[] eventsEmitted optional
  o DateTime transactionTimestamp
}

/**
 * Emitted once a transaction has been committed.
 */
event TransactionCommitted {
  --> Transaction transaction
}
`

// systemTypeNames maps each kind with a system base type to the short name
// of that type.
var systemTypeNames = map[Kind]string{
	KindAsset:       "Asset",
	KindParticipant: "Participant",
	KindTransaction: "Transaction",
	KindEvent:       "Event",
}

// isReservedName reports whether name is the short name of a core system type.
func isReservedName(name string) bool {
	for _, n := range systemTypeNames {
		if n == name {
			return true
		}
	}
	return false
}
