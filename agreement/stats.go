package agreement

type DepositStats struct {
	Count                     int    `json:"count"`
	TotalDepositedAmount      string `json:"totalDepositedAmount"`
	TotalApprovableAmount     string `json:"totalApprovableAmount"`
	TotalApprovedAmount       string `json:"totalApprovedAmount"`
	RemainingApprovableAmount string `json:"remainingApprovableAmount"`
	TotalApprovableTax        string `json:"totalApprovableTax"`
	TotalApprovedTax          string `json:"totalApprovedTax"`
	RemainingApprovableTax    string `json:"remainingApprovableTax"`
}

type WithdrawalStats struct {
	Count                     int    `json:"count"`
	TotalBurnedAmount         string `json:"totalBurnedAmount"`
	TotalApprovableAmount     string `json:"totalApprovableAmount"`
	TotalApprovedAmount       string `json:"totalApprovedAmount"`
	TotalApprovableTax        string `json:"totalApprovableTax"`
	TotalApprovedTax          string `json:"totalApprovedTax"`
	RemainingApprovableAmount string `json:"remainingApprovableAmount"`
	RemainingApprovableTax    string `json:"remainingApprovableTax"`
}

type UtxoStats struct {
	TotalChangeBalance   string `json:"totalChangeBalance"`
	TotalDepositsBalance string `json:"totalDepositsBalance"`
}

type VersionInfo struct {
	Module       string `json:"module"`
	Version      string `json:"version"`
	Revision     string `json:"revision"`
	Time         string `json:"time"`
	Modified     bool   `json:"modified"`
	DingoVersion string `json:"dingoVersion"`
}

type PublicSettings struct {
	AuthorityNodes     []*AuthorityNode `json:"authorityNodes"`
	AuthorityThreshold int              `json:"authorityThreshold"`
	PayoutCoordinator  int              `json:"payoutCoordinator"`
	WalletAddress      string           `json:"walletAddress"`
}

type DingoSettings struct {
	Network              string   `json:"network"`
	SyncDelayThreshold   int64    `json:"syncDelayThreshold"`
	DepositConfirmations int64    `json:"depositConfirmations"`
	ChangeConfirmations  int64    `json:"changeConfirmations"`
	ChangeAddress        string   `json:"changeAddress"`
	TaxPayoutAddresses   []string `json:"taxPayoutAddresses"`
}

type AptosSettings struct {
	Network       string `json:"network"`
	ModuleAddress string `json:"moduleAddress"`
	MintAuthority string `json:"mintAuthority"`
}

// Stats is the advisory aggregate operators compare across nodes.
type Stats struct {
	Version             *VersionInfo     `json:"version"`
	Time                int64            `json:"time"`
	PublicSettings      *PublicSettings  `json:"publicSettings"`
	DingoSettings       *DingoSettings   `json:"dingoSettings"`
	AptosSettings       *AptosSettings   `json:"aptosSettings"`
	ConfirmedDeposits   *DepositStats    `json:"confirmedDeposits"`
	UnconfirmedDeposits *DepositStats    `json:"unconfirmedDeposits"`
	Withdrawals         *WithdrawalStats `json:"withdrawals"`
	ConfirmedUtxos      *UtxoStats       `json:"confirmedUtxos"`
	UnconfirmedUtxos    *UtxoStats       `json:"unconfirmedUtxos"`
}
