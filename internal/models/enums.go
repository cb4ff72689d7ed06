package models

// Gender of a user. Optional on the profile.
type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderUndisclosed Gender = "undisclosed"
)

// Currency of a listing price.
type Currency string

const (
	CurrencyUSD Currency = "usd"
	CurrencyBRL Currency = "brl"
	CurrencyCAD Currency = "cad"
)

// MileageUnit is the unit a listing's mileage is expressed in.
type MileageUnit string

const (
	UnitKm    MileageUnit = "km"
	UnitMiles MileageUnit = "miles"
)

// Drive is the drivetrain layout.
type Drive string

const (
	DriveAWD Drive = "AWD"
	DriveFWD Drive = "FWD"
	DriveRWD Drive = "RWD"
)

// Fuel is the fuel type.
type Fuel string

const (
	FuelGasoline Fuel = "gasoline"
	FuelEthanol  Fuel = "ethanol"
	FuelDiesel   Fuel = "diesel"
	FuelElectric Fuel = "electric"
)

// BodyType is the vehicle body category. It is also a filter on the
// listing search, so both paths validate against the same set.
type BodyType string

const (
	BodyCargoVan     BodyType = "cargo_van"
	BodyConvertible  BodyType = "convertible"
	BodyHatchback    BodyType = "hatchback"
	BodyMinivan      BodyType = "minivan"
	BodyPassengerVan BodyType = "passenger_van"
	BodyPickup       BodyType = "pickup"
	BodySUV          BodyType = "suv"
	BodySedan        BodyType = "sedan"
	BodyWagon        BodyType = "wagon"
	BodyCoupe        BodyType = "coupe"
	BodySuper        BodyType = "super"
)

// TitleStatus is the legal title status of the vehicle.
type TitleStatus string

const (
	TitleClean         TitleStatus = "clean"
	TitleSalvage       TitleStatus = "salvage"
	TitleJunk          TitleStatus = "junk"
	TitleBonded        TitleStatus = "bonded"
	TitleReconstructed TitleStatus = "reconstructed"
	TitleAffidavit     TitleStatus = "affidavit"
	TitleRebuilt       TitleStatus = "rebuilt"
	TitleImport        TitleStatus = "import"
)

// Transmission type.
type Transmission string

const (
	TransmissionManual     Transmission = "manual"
	TransmissionAutomatic  Transmission = "automatic"
	TransmissionSequential Transmission = "sequential"
	TransmissionCVT        Transmission = "CVT"
)

var (
	genders       = []Gender{GenderMale, GenderFemale, GenderUndisclosed}
	currencies    = []Currency{CurrencyUSD, CurrencyBRL, CurrencyCAD}
	mileageUnits  = []MileageUnit{UnitKm, UnitMiles}
	drives        = []Drive{DriveAWD, DriveFWD, DriveRWD}
	fuels         = []Fuel{FuelGasoline, FuelEthanol, FuelDiesel, FuelElectric}
	transmissions = []Transmission{TransmissionManual, TransmissionAutomatic, TransmissionSequential, TransmissionCVT}
	bodyTypes     = []BodyType{
		BodyCargoVan, BodyConvertible, BodyHatchback, BodyMinivan, BodyPassengerVan,
		BodyPickup, BodySUV, BodySedan, BodyWagon, BodyCoupe, BodySuper,
	}
	titleStatuses = []TitleStatus{
		TitleClean, TitleSalvage, TitleJunk, TitleBonded,
		TitleReconstructed, TitleAffidavit, TitleRebuilt, TitleImport,
	}
)

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func (g Gender) Valid() bool { return contains(genders, g) }
func (c Currency) Valid() bool { return contains(currencies, c) }
func (u MileageUnit) Valid() bool { return contains(mileageUnits, u) }
func (d Drive) Valid() bool { return contains(drives, d) }
func (f Fuel) Valid() bool { return contains(fuels, f) }
func (b BodyType) Valid() bool { return contains(bodyTypes, b) }
func (t TitleStatus) Valid() bool { return contains(titleStatuses, t) }
func (t Transmission) Valid() bool { return contains(transmissions, t) }

