package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDataIntegrity        = errors.New("données incohérentes")
	ErrInvalidReferenceDate = errors.New("date de référence invalide")
	ErrDegenerateInput      = errors.New("population vide")
)

// DataIntegrityError signale une ligne malformée ou une référence inconnue.
// Fatal : le calcul s'arrête sans sortie partielle.
type DataIntegrityError struct {
	Record string // identifiant de l'enregistrement fautif (OrderID, CustomerID...)
	Line   int    // numéro de ligne à partir de 1 ; 0 si inconnu
	Reason string
}

func (e *DataIntegrityError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%v: ligne %d (%s): %s", ErrDataIntegrity, e.Line, e.Record, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", ErrDataIntegrity, e.Record, e.Reason)
}

func (e *DataIntegrityError) Is(target error) bool { return target == ErrDataIntegrity }

// InvalidReferenceDateError : la date de référence précède un achat observé.
type InvalidReferenceDateError struct {
	CustomerID   string
	AsOf         time.Time
	LastPurchase time.Time
}

func (e *InvalidReferenceDateError) Error() string {
	return fmt.Sprintf("%v: client %s, dernier achat %s > asOf %s", ErrInvalidReferenceDate,
		e.CustomerID, e.LastPurchase.Format(time.DateOnly), e.AsOf.Format(time.DateOnly))
}

func (e *InvalidReferenceDateError) Is(target error) bool { return target == ErrInvalidReferenceDate }

// DegenerateInputError : aucune donnée exploitable (population vide...).
type DegenerateInputError struct {
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("%v: %s", ErrDegenerateInput, e.Reason)
}

func (e *DegenerateInputError) Is(target error) bool { return target == ErrDegenerateInput }

// ConfigError enveloppe une erreur de configuration (règle, percentile...).
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
