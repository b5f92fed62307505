package models

// ServiceItem is an entry in the agency's billable service catalog.
type ServiceItem struct {
	Base
	Code        string `gorm:"uniqueIndex;size:16;not null" json:"code"` // SRV-1234
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Price       int64  `gorm:"not null;default:0" json:"price"` // rupees
	Category    string `gorm:"index" json:"category"`
}

func (ServiceItem) TableName() string {
	return "service_items"
}

type BankDetails struct {
	AccountName   string `json:"accountName"`
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	IFSC          string `json:"ifsc"`
}

// CompanySettings is the single row of agency details printed on invoices.
type CompanySettings struct {
	Base
	Name         string      `json:"name"`
	Address      string      `json:"address"`
	Phone        string      `json:"phone"`
	Email        string      `json:"email"`
	BankDetails  BankDetails `gorm:"embedded;embeddedPrefix:bank_" json:"bankDetails"`
	PaymentModes []string    `gorm:"serializer:json" json:"paymentModes"`
	PaymentTerms []string    `gorm:"serializer:json" json:"paymentTerms"`
}

func (CompanySettings) TableName() string {
	return "company_settings"
}

// DefaultCompanySettings is used until an admin saves their own.
func DefaultCompanySettings() CompanySettings {
	return CompanySettings{
		Name:    "Tarviz Digimart",
		Address: "123 Digital Avenue, Anna Nagar, Chennai, Tamil Nadu 600040",
		Phone:   "+91 74 7006 7003",
		Email:   "info@tarvizdigimart.com",
		BankDetails: BankDetails{
			AccountName:   "Tarviz Digimart Pvt Ltd",
			BankName:      "HDFC Bank",
			AccountNumber: "50200012345678",
			IFSC:          "HDFC0001234",
		},
		PaymentModes: []string{"NEFT/IMPS", "UPI", "Cheque"},
		PaymentTerms: []string{"50% Advance", "Balance on Delivery", "Net 15 Days"},
	}
}
