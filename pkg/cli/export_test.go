package cli

var (
	PrintTickSummary     = printTickSummary
	GetIndexConfig       = getIndexConfig
	MigrateFirestore     = migrateFirestore
	FirestoreCollections = firestoreCollections
)
