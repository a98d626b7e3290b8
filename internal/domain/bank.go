package domain

type Bank struct {
	Name     string   `json:"name" yaml:"name"`
	Branches []string `json:"branches" yaml:"branches"`
}
