package state

var (
	// addresses contributed to a deposit registration round; never reused
	usedDepositAddressesTable = `CREATE TABLE IF NOT EXISTS usedDepositAddresses (
		address TEXT PRIMARY KEY NOT NULL,
		CONSTRAINT chk_address CHECK (address != '')
	);`

	// one multisig deposit address per mint address. Amounts are base-unit
	// decimal strings so that they are exact at any size.
	mintDepositAddressesTable = `CREATE TABLE IF NOT EXISTS mintDepositAddresses (
		mintAddress TEXT PRIMARY KEY NOT NULL,
		depositAddress TEXT UNIQUE NOT NULL,
		redeemScript TEXT NOT NULL,
		approvedAmount TEXT NOT NULL DEFAULT '0',
		approvedTax TEXT NOT NULL DEFAULT '0',
		CONSTRAINT chk_mintAddress CHECK (mintAddress != ''),
		CONSTRAINT chk_depositAddress CHECK (depositAddress != '')
	);`

	withdrawalsTable = `CREATE TABLE IF NOT EXISTS withdrawals (
		burnSignature TEXT PRIMARY KEY NOT NULL,
		burnAmount TEXT NOT NULL,
		burnDestination TEXT NOT NULL,
		approvedAmount TEXT NOT NULL DEFAULT '0',
		approvedTax TEXT NOT NULL DEFAULT '0',
		CONSTRAINT chk_burnSignature CHECK (burnSignature != ''),
		CONSTRAINT chk_burnDestination CHECK (burnDestination != '')
	);`

	mintDepositAddressParamList = " mintAddress, depositAddress, redeemScript, approvedAmount, approvedTax "
	withdrawalParamList         = " burnSignature, burnAmount, burnDestination, approvedAmount, approvedTax "
)
