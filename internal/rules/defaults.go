package rules

// Builtin returns the default rule catalog: a K2 income statement and balance
// sheet over BAS account ranges, and the INK2 tax reconciliation.
func Builtin() *Document {
	return &Document{
		RateSets: builtinRates(),
		Tables: map[TableName][]Row{
			TableRR:   incomeStatement(),
			TableBR:   balanceSheet(),
			TableINK2: taxReconciliation(),
		},
	}
}

func builtinRates() []RateSet {
	return []RateSet{
		{FromYear: 2013, Values: map[string]string{RateCorporateTax: "0.22", RatePensionPayrollTax: "0.2426"}},
		{FromYear: 2019, Values: map[string]string{RateCorporateTax: "0.214"}},
		{FromYear: 2021, Values: map[string]string{RateCorporateTax: "0.206"}},
	}
}

// Income statement rows are credit-presented: the display inverts the ledger
// sign so income reads positive and costs negative.
func incomeStatement() []Row {
	rows := []Row{
		{ID: "RR1", Label: "Rörelseintäkter", Style: "H2", Group: "RR1"},
		{ID: "3.1", Label: "Nettoomsättning", SRU: "7410", Range: "3000-3799", Group: "RR1"},
		{ID: "3.2", Label: "Förändring av lager av produkter i arbete, färdiga varor och pågående arbete för annans räkning", SRU: "7411", Range: "4900-4999", ExcludeRange: "4960-4989", Exclude: "4910-4929", Group: "RR1"},
		{ID: "3.3", Label: "Aktiverat arbete för egen räkning", SRU: "7510", Range: "3800-3899", Group: "RR1"},
		{ID: "3.4", Label: "Övriga rörelseintäkter", SRU: "7412", Range: "3900-3999", Group: "RR1"},
		{ID: "RI", Label: "Summa rörelseintäkter, lagerförändringar m.m.", Style: "S2", Formula: "3.1+3.2+3.3+3.4", Group: "RR1"},

		{ID: "RR2", Label: "Rörelsekostnader", Style: "H2", Group: "RR2"},
		{ID: "3.5", Label: "Råvaror och förnödenheter", SRU: "7511", Range: "4000-4799", Include: "4910-4929", Group: "RR2"},
		{ID: "3.6", Label: "Handelsvaror", SRU: "7512", Range: "4960-4989", Group: "RR2"},
		{ID: "3.7", Label: "Övriga externa kostnader", SRU: "7513", Range: "5000-6999", Group: "RR2"},
		{ID: "3.8", Label: "Personalkostnader", SRU: "7514", Range: "7000-7699", Group: "RR2"},
		{ID: "3.9", Label: "Av- och nedskrivningar av materiella och immateriella anläggningstillgångar", SRU: "7515", Range: "7700-7899", ExcludeRange: "7740-7749", Exclude: "7790-7799", Group: "RR2"},
		{ID: "3.10", Label: "Nedskrivningar av omsättningstillgångar utöver normala nedskrivningar", SRU: "7516", Range: "7740-7749", Include: "7790-7799", Group: "RR2"},
		{ID: "3.11", Label: "Övriga rörelsekostnader", SRU: "7517", Range: "7900-7999", Group: "RR2"},
		{ID: "RK", Label: "Summa rörelsekostnader", Style: "S2", Formula: "3.5+3.6+3.7+3.8+3.9+3.10+3.11", Group: "RR2"},

		{ID: "RR", Label: "Rörelseresultat", Style: "S1", Formula: "RI+RK", AlwaysShow: true},

		{ID: "RR3", Label: "Finansiella poster", Style: "H2", Group: "RR3"},
		{ID: "3.12", Label: "Resultat från andelar i koncernföretag", Range: "8000-8099", Group: "RR3"},
		{ID: "3.13", Label: "Resultat från andelar i intresseföretag och gemensamt styrda företag", Range: "8100-8199", Group: "RR3"},
		{ID: "3.14", Label: "Resultat från övriga finansiella anläggningstillgångar", Range: "8200-8299", Group: "RR3"},
		{ID: "3.16", Label: "Övriga ränteintäkter och liknande resultatposter", SRU: "7417", Range: "8300-8399", Group: "RR3"},
		{ID: "3.18", Label: "Räntekostnader och liknande resultatposter", SRU: "7522", Range: "8400-8499", Group: "RR3"},
		{ID: "FP", Label: "Summa finansiella poster", Style: "S2", Formula: "3.12+3.13+3.14+3.16+3.18", Group: "RR3"},

		{ID: "RFP", Label: "Resultat efter finansiella poster", Style: "S1", Formula: "RR+FP", AlwaysShow: true},

		{ID: "RR4", Label: "Bokslutsdispositioner", Style: "H2", Group: "RR4"},
		{ID: "3.19", Label: "Erhållna koncernbidrag", SRU: "7419", Range: "8820-8829", Group: "RR4"},
		{ID: "3.20", Label: "Lämnade koncernbidrag", SRU: "7524", Range: "8830-8839", Group: "RR4"},
		{ID: "3.21", Label: "Förändring av periodiseringsfonder", SRU: "7420/7525", Range: "8810-8819", Group: "RR4"},
		{ID: "3.22", Label: "Förändring av överavskrivningar", SRU: "7421/7526", Range: "8850-8859", Group: "RR4"},
		{ID: "3.23", Label: "Övriga bokslutsdispositioner", SRU: "7422/7527", Range: "8840-8899", ExcludeRange: "8850-8859", Group: "RR4"},
		{ID: "BD", Label: "Summa bokslutsdispositioner", Style: "S2", Formula: "3.19+3.20+3.21+3.22+3.23", Group: "RR4"},

		{ID: "RFS", Label: "Resultat före skatt", Style: "S1", Formula: "RFP+BD", AlwaysShow: true},

		{ID: "RR5", Label: "Skatter", Style: "H2", Group: "RR5"},
		{ID: "3.24", Label: "Skatt på årets resultat", SRU: "7528", Range: "8900-8989", Exclude: "8980", Group: "RR5"},
		{ID: "3.25", Label: "Övriga skatter", Range: "8980", Group: "RR5"},

		{ID: "ÅR", Label: "Årets resultat", Style: "S1", Formula: "RFS+3.24", AlwaysShow: true},
	}
	for i := range rows {
		rows[i].BalanceType = "credit"
	}
	return rows
}

func balanceSheet() []Row {
	rows := []Row{
		{ID: "BR_TILLGANGAR", Label: "Tillgångar", Style: "H0", AlwaysShow: true},
		{ID: "BR_ANL", Label: "Anläggningstillgångar", Style: "H1", Group: "ANL"},
		{ID: "B1", Label: "Immateriella anläggningstillgångar", Range: "1000-1099", Group: "ANL"},
		{ID: "B2", Label: "Byggnader och mark", Range: "1100-1199", Group: "ANL"},
		{ID: "B3", Label: "Maskiner och inventarier", Range: "1200-1299", Group: "ANL"},
		{ID: "B4", Label: "Finansiella anläggningstillgångar", Range: "1300-1399", Group: "ANL"},
		{ID: "SA", Label: "Summa anläggningstillgångar", Style: "S2", Formula: "B1+B2+B3+B4", Group: "ANL"},

		{ID: "BR_OMS", Label: "Omsättningstillgångar", Style: "H1", Group: "OMS"},
		{ID: "B5", Label: "Varulager m.m.", Range: "1400-1499", Group: "OMS"},
		{ID: "B6", Label: "Kundfordringar", Range: "1500-1599", Group: "OMS"},
		{ID: "B7", Label: "Övriga kortfristiga fordringar", Range: "1600-1699", Group: "OMS"},
		{ID: "B8", Label: "Förutbetalda kostnader och upplupna intäkter", Range: "1700-1799", Group: "OMS"},
		{ID: "B9", Label: "Kortfristiga placeringar", Range: "1800-1899", Group: "OMS"},
		{ID: "B10", Label: "Kassa och bank", Range: "1900-1999", Group: "OMS"},
		{ID: "SO", Label: "Summa omsättningstillgångar", Style: "S2", Formula: "B5+B6+B7+B8+B9+B10", Group: "OMS"},

		{ID: "ST", Label: "Summa tillgångar", Style: "S1", Formula: "SA+SO", AlwaysShow: true},
	}
	for i := range rows {
		rows[i].BalanceType = "debit"
	}

	liabilities := []Row{
		{ID: "BR_EKS", Label: "Eget kapital och skulder", Style: "H0", AlwaysShow: true},
		{ID: "BR_EK", Label: "Eget kapital", Style: "H1", Group: "EK"},
		{ID: "B11", Label: "Bundet eget kapital", Range: "2080-2089", Group: "EK"},
		{ID: "B12", Label: "Balanserat resultat", Range: "2090-2098", Group: "EK"},
		{ID: "B13", Label: "Årets resultat", Ref: &Ref{Table: TableRR, ID: "ÅR"}, Group: "EK"},
		{ID: "SEK", Label: "Summa eget kapital", Style: "S2", Formula: "B11+B12+B13", Group: "EK"},

		{ID: "BR_OB", Label: "Obeskattade reserver", Style: "H1", Group: "OB"},
		{ID: "B14", Label: "Periodiseringsfonder", Range: "2110-2149", Group: "OB"},
		{ID: "B15", Label: "Ackumulerade överavskrivningar", Range: "2150-2159", Group: "OB"},
		{ID: "B16", Label: "Övriga obeskattade reserver", Range: "2160-2199", Group: "OB"},
		{ID: "SOB", Label: "Summa obeskattade reserver", Style: "S2", Formula: "B14+B15+B16", Group: "OB"},

		{ID: "BR_AVS", Label: "Avsättningar", Style: "H1", Group: "AVS"},
		{ID: "B17", Label: "Avsättningar", Range: "2200-2299", Group: "AVS"},

		{ID: "BR_LS", Label: "Långfristiga skulder", Style: "H1", Group: "LS"},
		{ID: "B18", Label: "Långfristiga skulder", Range: "2300-2399", Group: "LS"},

		{ID: "BR_KS", Label: "Kortfristiga skulder", Style: "H1", Group: "KS"},
		{ID: "B19", Label: "Leverantörsskulder", Range: "2440-2449", Group: "KS"},
		{ID: "B20", Label: "Skatteskulder", Range: "2500-2599", Group: "KS"},
		{ID: "B21", Label: "Övriga kortfristiga skulder", Range: "2400-2899", Exclude: "2440-2449;2500-2599", Group: "KS"},
		{ID: "B22", Label: "Upplupna kostnader och förutbetalda intäkter", Range: "2900-2999", Group: "KS"},
		{ID: "SKS", Label: "Summa kortfristiga skulder", Style: "S2", Formula: "B19+B20+B21+B22", Group: "KS"},

		{ID: "SEKS", Label: "Summa eget kapital och skulder", Style: "S1", Formula: "SEK+SOB+B17+B18+SKS", AlwaysShow: true},
	}
	for i := range liabilities {
		liabilities[i].BalanceType = "credit"
	}
	return append(rows, liabilities...)
}

func taxReconciliation() []Row {
	return []Row{
		{ID: "INK_rubrik", Label: "Skatteberäkning", Style: "H1", Group: "INK", AlwaysShow: true},
		{ID: "INK_arets_resultat", Label: "Årets resultat enligt resultaträkningen", Ref: &Ref{Table: TableRR, ID: "ÅR"}, Factor: "-1", Group: "INK"},
		{
			ID: "INK_bokford_skatt", Label: "Bokförd skatt på årets resultat", Ref: &Ref{Table: TableRR, ID: "3.24"}, Group: "INK",
			Explainer: "Skattekostnaden i resultaträkningen är inte avdragsgill och läggs tillbaka.",
		},
		{ID: "INK_ej_avdragsgilla", Label: "Ej avdragsgilla kostnader", Include: "6072;6992;6993;7622;7632;8423", Group: "INK"},
		{ID: "INK_ej_skattepliktiga", Label: "Ej skattepliktiga intäkter", Include: "8012;8112;8314", Factor: "-1", Group: "INK"},
		{
			ID: "INK_sarskild_loneskatt", Label: "Justering särskild löneskatt pensionspremier", Group: "INK",
			Explainer: "Korrigerar skillnaden mellan bokförd och beräknad särskild löneskatt på pensionspremier. " +
				"Beräknat belopp är årets pensionspremier gånger gällande skattesats.",
		},
		{
			ID: "INK_skattemassigt_resultat", Label: "Skattemässigt resultat före underskottsavdrag", Style: "S2", Group: "INK",
			Formula: "INK_arets_resultat+INK_bokford_skatt+INK_ej_avdragsgilla-INK_ej_skattepliktiga-INK_sarskild_loneskatt",
		},
		{
			ID: "INK_outnyttjat_underskott", Label: "Outnyttjat underskott från föregående år", Group: "INK",
			Explainer: "Fylls i manuellt med underskott som rullas vidare från tidigare år.",
		},
		{ID: "INK_skattepliktigt_resultat", Label: "Skattepliktigt resultat", Style: "S2", Formula: "INK_skattemassigt_resultat-INK_outnyttjat_underskott", Group: "INK", AlwaysShow: true},
		{ID: "INK_beraknad_skatt", Label: "Beräknad bolagsskatt", Style: "S1", Formula: "INK_skattepliktigt_resultat", Factor: RateCorporateTax, NonNegative: true, Group: "INK", AlwaysShow: true},
	}
}
