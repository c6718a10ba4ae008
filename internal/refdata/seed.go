package refdata

import (
	"context"

	"ropa-backend/internal/models"

	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

// Seed inserts the baseline reference set: a representative country list with
// jurisdiction tags, the Article 9/10 nature atoms, and the Chapter V
// mechanism catalog. Idempotent: existing rows (matched by unique name/code)
// are left untouched, so it is safe to run on every startup.
func Seed(ctx context.Context, db *gorm.DB) error {
	countries := []models.Country{
		{Name: "Germany", IsoCode2: "DE", IsoCode3: strPtr("DEU"), JurisdictionTags: models.TagsJSON(models.TagEU, models.TagEEA)},
		{Name: "France", IsoCode2: "FR", IsoCode3: strPtr("FRA"), JurisdictionTags: models.TagsJSON(models.TagEU, models.TagEEA)},
		{Name: "Ireland", IsoCode2: "IE", IsoCode3: strPtr("IRL"), JurisdictionTags: models.TagsJSON(models.TagEU, models.TagEEA)},
		{Name: "Netherlands", IsoCode2: "NL", IsoCode3: strPtr("NLD"), JurisdictionTags: models.TagsJSON(models.TagEU, models.TagEEA)},
		{Name: "Poland", IsoCode2: "PL", IsoCode3: strPtr("POL"), JurisdictionTags: models.TagsJSON(models.TagEU, models.TagEEA)},
		{Name: "Norway", IsoCode2: "NO", IsoCode3: strPtr("NOR"), JurisdictionTags: models.TagsJSON(models.TagEEA, models.TagEFTA)},
		{Name: "Iceland", IsoCode2: "IS", IsoCode3: strPtr("ISL"), JurisdictionTags: models.TagsJSON(models.TagEEA, models.TagEFTA)},
		{Name: "Switzerland", IsoCode2: "CH", IsoCode3: strPtr("CHE"), JurisdictionTags: models.TagsJSON(models.TagEFTA, models.TagThirdCountry, models.TagAdequate)},
		{Name: "United Kingdom", IsoCode2: "GB", IsoCode3: strPtr("GBR"), JurisdictionTags: models.TagsJSON(models.TagThirdCountry, models.TagAdequate)},
		{Name: "Japan", IsoCode2: "JP", IsoCode3: strPtr("JPN"), JurisdictionTags: models.TagsJSON(models.TagThirdCountry, models.TagAdequate)},
		{Name: "Canada", IsoCode2: "CA", IsoCode3: strPtr("CAN"), JurisdictionTags: models.TagsJSON(models.TagThirdCountry, models.TagAdequate)},
		{Name: "United States", IsoCode2: "US", IsoCode3: strPtr("USA"), JurisdictionTags: models.TagsJSON(models.TagThirdCountry)},
		{Name: "India", IsoCode2: "IN", IsoCode3: strPtr("IND"), JurisdictionTags: models.TagsJSON(models.TagThirdCountry)},
		{Name: "China", IsoCode2: "CN", IsoCode3: strPtr("CHN"), JurisdictionTags: models.TagsJSON(models.TagThirdCountry)},
		{Name: "Brazil", IsoCode2: "BR", IsoCode3: strPtr("BRA"), JurisdictionTags: models.TagsJSON(models.TagThirdCountry)},
		{Name: "Australia", IsoCode2: "AU", IsoCode3: strPtr("AUS"), JurisdictionTags: models.TagsJSON(models.TagThirdCountry)},
	}
	for i := range countries {
		var existing models.Country
		err := db.WithContext(ctx).Where("iso_code2 = ?", countries[i].IsoCode2).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := db.WithContext(ctx).Create(&countries[i]).Error; err != nil {
			return err
		}
	}

	natures := []models.DataNature{
		{Name: "Health Data", Classification: models.NatureSpecial, GdprArticleRef: "Art. 9(1)"},
		{Name: "Genetic Data", Classification: models.NatureSpecial, GdprArticleRef: "Art. 9(1)"},
		{Name: "Biometric Data", Classification: models.NatureSpecial, GdprArticleRef: "Art. 9(1)"},
		{Name: "Racial or Ethnic Origin", Classification: models.NatureSpecial, GdprArticleRef: "Art. 9(1)"},
		{Name: "Political Opinions", Classification: models.NatureSpecial, GdprArticleRef: "Art. 9(1)"},
		{Name: "Religious or Philosophical Beliefs", Classification: models.NatureSpecial, GdprArticleRef: "Art. 9(1)"},
		{Name: "Trade Union Membership", Classification: models.NatureSpecial, GdprArticleRef: "Art. 9(1)"},
		{Name: "Sex Life or Sexual Orientation", Classification: models.NatureSpecial, GdprArticleRef: "Art. 9(1)"},
		{Name: "Criminal Convictions", Classification: models.NatureSpecial, GdprArticleRef: "Art. 10"},
		{Name: "Name", Classification: models.NatureNonSpecial, GdprArticleRef: "Art. 4(1)"},
		{Name: "Contact Information", Classification: models.NatureNonSpecial, GdprArticleRef: "Art. 4(1)"},
		{Name: "Identification Numbers", Classification: models.NatureNonSpecial, GdprArticleRef: "Art. 4(1)"},
		{Name: "Financial Data", Classification: models.NatureNonSpecial, GdprArticleRef: "Art. 4(1)"},
		{Name: "Location Data", Classification: models.NatureNonSpecial, GdprArticleRef: "Art. 4(1)"},
		{Name: "Online Identifiers", Classification: models.NatureNonSpecial, GdprArticleRef: "Art. 4(1)"},
		{Name: "Employment Details", Classification: models.NatureNonSpecial, GdprArticleRef: "Art. 4(1)"},
	}
	for i := range natures {
		var existing models.DataNature
		err := db.WithContext(ctx).Where("name = ?", natures[i].Name).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := db.WithContext(ctx).Create(&natures[i]).Error; err != nil {
			return err
		}
	}

	mechanisms := []models.TransferMechanism{
		{Name: "Adequacy Decision", Category: models.MechanismAdequacy, RequiresDocumentation: false,
			Description: strPtr("Commission adequacy decision under Art. 45")},
		{Name: "Standard Contractual Clauses", Category: models.MechanismSafeguard, RequiresDocumentation: true,
			Description: strPtr("SCCs under Art. 46(2)(c), 2021 modules")},
		{Name: "Binding Corporate Rules", Category: models.MechanismSafeguard, RequiresDocumentation: true,
			Description: strPtr("BCRs approved under Art. 47")},
		{Name: "Approved Code of Conduct", Category: models.MechanismSafeguard, RequiresDocumentation: true,
			Description: strPtr("Code of conduct with binding commitments, Art. 46(2)(e)")},
		{Name: "Explicit Consent", Category: models.MechanismDerogation, RequiresDocumentation: true,
			Description: strPtr("Derogation under Art. 49(1)(a)")},
		{Name: "Contractual Necessity", Category: models.MechanismDerogation, RequiresDocumentation: false,
			Description: strPtr("Derogation under Art. 49(1)(b)")},
		{Name: "No Mechanism (Under Review)", Category: models.MechanismNone, RequiresDocumentation: false,
			Description: strPtr("Transfer recorded without a safeguard; flagged for remediation")},
	}
	for i := range mechanisms {
		var existing models.TransferMechanism
		err := db.WithContext(ctx).Where("name = ?", mechanisms[i].Name).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := db.WithContext(ctx).Create(&mechanisms[i]).Error; err != nil {
			return err
		}
	}

	return nil
}
