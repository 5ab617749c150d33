package extract

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpintel/edgargraph/internal/models"
)

const form4XML = `<?xml version="1.0"?>
<ownershipDocument>
    <issuer>
        <issuerCik>0000320193</issuerCik>
        <issuerName>Apple Inc.</issuerName>
        <issuerTradingSymbol>AAPL</issuerTradingSymbol>
    </issuer>
    <reportingOwner>
        <reportingOwnerId>
            <rptOwnerCik>0001214156</rptOwnerCik>
            <rptOwnerName>COOK TIMOTHY D</rptOwnerName>
        </reportingOwnerId>
        <reportingOwnerRelationship>
            <isDirector>1</isDirector>
            <isOfficer>1</isOfficer>
            <isTenPercentOwner>0</isTenPercentOwner>
            <officerTitle>Chief Executive Officer</officerTitle>
        </reportingOwnerRelationship>
    </reportingOwner>
    <nonDerivativeTable>
        <nonDerivativeTransaction>
            <securityTitle><value>Common Stock</value></securityTitle>
            <transactionDate><value>2024-04-01</value></transactionDate>
            <transactionCoding>
                <transactionFormType>4</transactionFormType>
                <transactionCode>S</transactionCode>
            </transactionCoding>
            <transactionAmounts>
                <transactionShares><value>50000</value></transactionShares>
                <transactionPricePerShare><value>170.25</value></transactionPricePerShare>
            </transactionAmounts>
            <postTransactionAmounts>
                <sharesOwnedFollowingTransaction><value>3230000</value></sharesOwnedFollowingTransaction>
            </postTransactionAmounts>
            <ownershipNature>
                <directOrIndirectOwnership><value>D</value></directOrIndirectOwnership>
            </ownershipNature>
        </nonDerivativeTransaction>
    </nonDerivativeTable>
    <derivativeTable>
        <derivativeTransaction>
            <securityTitle><value>Restricted Stock Unit</value></securityTitle>
            <transactionDate><value>2024-04-01</value></transactionDate>
            <transactionCoding>
                <transactionCode>M</transactionCode>
            </transactionCoding>
            <transactionAmounts>
                <transactionShares><value>100000</value></transactionShares>
                <transactionPricePerShare><value>0</value></transactionPricePerShare>
            </transactionAmounts>
            <postTransactionAmounts>
                <sharesOwnedFollowingTransaction><value>0</value></sharesOwnedFollowingTransaction>
            </postTransactionAmounts>
        </derivativeTransaction>
    </derivativeTable>
</ownershipDocument>`

func TestForm4Extractor(t *testing.T) {
	ref := models.FilingReference{
		AccessionNumber: "0000320193-24-000050",
		CIK:             "0000999999", // index CIK differs from issuer
		FormType:        "4",
		FilingDate:      "2024-04-02",
	}

	e := NewForm4Extractor()
	candidates, err := e.Extract(context.Background(), form4XML, ref)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	sale := candidates[0]
	assert.Equal(t, models.KindTransaction, sale.Kind)
	assert.Equal(t, "0000320193", sale.SubjectCIK, "issuer CIK overrides the filing index CIK")
	assert.Equal(t, "Apple Inc.", sale.SubjectName)
	assert.Equal(t, "COOK TIMOTHY D", sale.Transaction.InsiderName)
	assert.Equal(t, "Chief Executive Officer", sale.Transaction.InsiderTitle)
	assert.Equal(t, "S", sale.Transaction.Code)
	assert.Equal(t, "Common Stock", sale.Transaction.SecurityTitle)
	assert.Equal(t, "2024-04-01", sale.Transaction.Date)
	assert.InDelta(t, 50000, sale.Transaction.Shares, 0.001)
	assert.InDelta(t, 170.25, sale.Transaction.PricePerShare, 0.001)
	assert.InDelta(t, 50000*170.25, sale.Transaction.TotalValue, 0.01)
	assert.InDelta(t, 3230000, sale.Transaction.SharesAfter, 0.001)
	assert.Equal(t, "D", sale.Transaction.OwnershipType)
	assert.False(t, sale.Transaction.IsDerivative)

	exercise := candidates[1]
	assert.Equal(t, "M", exercise.Transaction.Code)
	assert.True(t, exercise.Transaction.IsDerivative)
	assert.Equal(t, "D", exercise.Transaction.OwnershipType, "missing ownership nature defaults to direct")
}

func TestForm4ExtractorSkipsNonXML(t *testing.T) {
	e := NewForm4Extractor()
	candidates, err := e.Extract(context.Background(), "<html><body>legacy form 4</body></html>", models.FilingReference{})
	require.NoError(t, err)
	assert.Nil(t, candidates)
}

func TestForm4ExtractorTruncatedXML(t *testing.T) {
	e := NewForm4Extractor()
	candidates, err := e.Extract(context.Background(), form4XML[:200], models.FilingReference{})
	require.NoError(t, err)
	assert.Nil(t, candidates)
}

func TestForm4ExtractorPadsIssuerCIK(t *testing.T) {
	// EDGAR XML reports the issuer CIK unpadded; the graph keys
	// companies on the 10-digit form.
	xml := `<?xml version="1.0"?>
<ownershipDocument>
    <issuer><issuerCik>320193</issuerCik><issuerName>Apple Inc.</issuerName></issuer>
    <reportingOwner>
        <reportingOwnerId><rptOwnerName>COOK TIMOTHY D</rptOwnerName></reportingOwnerId>
    </reportingOwner>
    <nonDerivativeTable>
        <nonDerivativeTransaction>
            <securityTitle><value>Common Stock</value></securityTitle>
            <transactionDate><value>2024-04-01</value></transactionDate>
            <transactionCoding><transactionCode>P</transactionCode></transactionCoding>
            <transactionAmounts>
                <transactionShares><value>100</value></transactionShares>
                <transactionPricePerShare><value>10</value></transactionPricePerShare>
            </transactionAmounts>
        </nonDerivativeTransaction>
    </nonDerivativeTable>
</ownershipDocument>`

	e := NewForm4Extractor()
	candidates, err := e.Extract(context.Background(), xml, models.FilingReference{CIK: "0000999999"})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "0000320193", candidates[0].SubjectCIK)
}

func TestForm4ExtractorDerivesTitleFromRoles(t *testing.T) {
	const template = `<?xml version="1.0"?>
<ownershipDocument>
    <issuer><issuerCik>320193</issuerCik><issuerName>Apple Inc.</issuerName></issuer>
    <reportingOwner>
        <reportingOwnerId><rptOwnerName>DOE JANE</rptOwnerName></reportingOwnerId>
        <reportingOwnerRelationship>%s</reportingOwnerRelationship>
    </reportingOwner>
    <nonDerivativeTable>
        <nonDerivativeTransaction>
            <securityTitle><value>Common Stock</value></securityTitle>
            <transactionDate><value>2024-04-01</value></transactionDate>
            <transactionCoding><transactionCode>P</transactionCode></transactionCoding>
            <transactionAmounts>
                <transactionShares><value>100</value></transactionShares>
                <transactionPricePerShare><value>10</value></transactionPricePerShare>
            </transactionAmounts>
        </nonDerivativeTransaction>
    </nonDerivativeTable>
</ownershipDocument>`

	e := NewForm4Extractor()

	cases := []struct {
		relationship string
		wantTitle    string
	}{
		{"<isDirector>1</isDirector>", "Director"},
		{"<isTenPercentOwner>true</isTenPercentOwner>", "10% Owner"},
		{"<isOfficer>1</isOfficer><officerTitle>General Counsel</officerTitle>", "General Counsel"},
		{"", ""},
	}
	for _, tc := range cases {
		candidates, err := e.Extract(context.Background(), fmt.Sprintf(template, tc.relationship), models.FilingReference{})
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, tc.wantTitle, candidates[0].Transaction.InsiderTitle)
	}
}
