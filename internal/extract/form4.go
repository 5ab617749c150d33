package extract

import (
	"context"
	"encoding/xml"
	"log/slog"
	"strings"
	"time"

	"github.com/corpintel/edgargraph/internal/edgar"
	"github.com/corpintel/edgargraph/internal/logging"
	"github.com/corpintel/edgargraph/internal/models"
)

// TransactionCodes maps SEC transaction codes to readable labels.
var TransactionCodes = map[string]string{
	"P": "Purchase",
	"S": "Sale",
	"A": "Award",
	"M": "Exercise",
	"F": "Tax",
	"G": "Gift",
	"D": "Disposition",
	"C": "Conversion",
	"W": "Acquisition Due to Will/Inheritance",
	"J": "Other",
	"K": "Equity Swap",
	"U": "Tender of Shares",
	"I": "Discretionary Transaction",
}

// ownershipDocument mirrors the Form 4 XML schema, only the elements we
// read.
type ownershipDocument struct {
	XMLName xml.Name `xml:"ownershipDocument"`
	Issuer  struct {
		CIK  string `xml:"issuerCik"`
		Name string `xml:"issuerName"`
	} `xml:"issuer"`
	ReportingOwner struct {
		ID struct {
			Name string `xml:"rptOwnerName"`
			CIK  string `xml:"rptOwnerCik"`
		} `xml:"reportingOwnerId"`
		Relationship reportingRelationship `xml:"reportingOwnerRelationship"`
	} `xml:"reportingOwner"`
	NonDerivativeTable struct {
		Transactions []form4Transaction `xml:"nonDerivativeTransaction"`
	} `xml:"nonDerivativeTable"`
	DerivativeTable struct {
		Transactions []form4Transaction `xml:"derivativeTransaction"`
	} `xml:"derivativeTable"`
}

// reportingRelationship holds the insider's relationship flags. They
// appear as "1"/"0" or "true"/"false" in the wild.
type reportingRelationship struct {
	IsDirector        string `xml:"isDirector"`
	IsOfficer         string `xml:"isOfficer"`
	IsTenPercentOwner string `xml:"isTenPercentOwner"`
	OfficerTitle      string `xml:"officerTitle"`
}

type form4Transaction struct {
	SecurityTitle   xmlValue `xml:"securityTitle"`
	TransactionDate xmlValue `xml:"transactionDate"`
	Coding          struct {
		Code string `xml:"transactionCode"`
	} `xml:"transactionCoding"`
	Amounts struct {
		Shares        xmlValue `xml:"transactionShares"`
		PricePerShare xmlValue `xml:"transactionPricePerShare"`
	} `xml:"transactionAmounts"`
	PostTransaction struct {
		SharesOwned xmlValue `xml:"sharesOwnedFollowingTransaction"`
	} `xml:"postTransactionAmounts"`
	OwnershipNature struct {
		DirectOrIndirect xmlValue `xml:"directOrIndirectOwnership"`
	} `xml:"ownershipNature"`
}

type xmlValue struct {
	Value string `xml:"value"`
}

// Form4Extractor parses insider transactions out of Form 4 XML. Pre-2005
// HTML Form 4s are skipped, not errors.
type Form4Extractor struct {
	log *slog.Logger
}

func NewForm4Extractor() *Form4Extractor {
	return &Form4Extractor{log: logging.Component("extract.form4")}
}

func (e *Form4Extractor) Extract(_ context.Context, content string, ref models.FilingReference) ([]models.Candidate, error) {
	stripped := strings.TrimSpace(content)
	if !strings.HasPrefix(stripped, "<?xml") && !strings.HasPrefix(stripped, "<ownershipDocument") {
		e.log.Warn("skipping non-XML form 4", "accession", ref.AccessionNumber)
		return nil, nil
	}

	var doc ownershipDocument
	if err := xml.Unmarshal([]byte(content), &doc); err != nil {
		e.log.Warn("failed to parse form 4 xml", "accession", ref.AccessionNumber, "error", err)
		return nil, nil
	}

	insiderName := strings.TrimSpace(doc.ReportingOwner.ID.Name)
	if insiderName == "" {
		return nil, nil
	}
	title := insiderTitle(doc.ReportingOwner.Relationship)

	// XML issuer CIKs come unpadded; the graph keys companies on the
	// 10-digit form.
	issuerCIK := ref.CIK
	if cik := strings.TrimSpace(doc.Issuer.CIK); cik != "" {
		issuerCIK = edgar.NormalizeCIK(cik)
	}

	var candidates []models.Candidate
	appendTxns := func(txns []form4Transaction, derivative bool) {
		for _, txn := range txns {
			code := strings.TrimSpace(txn.Coding.Code)
			if code == "" {
				continue
			}
			shares := parseFloat(txn.Amounts.Shares.Value)
			price := parseFloat(txn.Amounts.PricePerShare.Value)
			ownership := strings.TrimSpace(txn.OwnershipNature.DirectOrIndirect.Value)
			if ownership == "" {
				ownership = "D"
			}
			security := strings.TrimSpace(txn.SecurityTitle.Value)
			if security == "" {
				security = "Unknown"
			}

			candidates = append(candidates, models.Candidate{
				Kind:        models.KindTransaction,
				Method:      models.MethodRuleBased,
				Confidence:  RuleBasedConfidence,
				ExtractedAt: time.Now().UTC(),
				SubjectCIK:  issuerCIK,
				SubjectName: strings.TrimSpace(doc.Issuer.Name),
				Citation: models.SourceCitation{
					Filing:  ref,
					Section: "Form 4",
				},
				Transaction: &models.TransactionFact{
					InsiderName:   insiderName,
					InsiderTitle:  title,
					SecurityTitle: security,
					Date:          strings.TrimSpace(txn.TransactionDate.Value),
					Code:          code,
					Shares:        shares,
					PricePerShare: price,
					TotalValue:    shares * price,
					SharesAfter:   parseFloat(txn.PostTransaction.SharesOwned.Value),
					OwnershipType: ownership,
					IsDerivative:  derivative,
				},
			})
		}
	}
	appendTxns(doc.NonDerivativeTable.Transactions, false)
	appendTxns(doc.DerivativeTable.Transactions, true)

	return candidates, nil
}

// insiderTitle prefers the reported officer title, falling back to the
// relationship flags when none is given.
func insiderTitle(rel reportingRelationship) string {
	if title := strings.TrimSpace(rel.OfficerTitle); title != "" {
		return title
	}
	switch {
	case xmlBool(rel.IsDirector):
		return "Director"
	case xmlBool(rel.IsTenPercentOwner):
		return "10% Owner"
	}
	return ""
}

func xmlBool(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return s == "1" || s == "true"
}
