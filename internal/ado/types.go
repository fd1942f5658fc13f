package ado

type wiqlRequest struct {
	Query string `json:"query"`
}

type workItemReference struct {
	URL string `json:"url"`
	ID  int    `json:"id"`
}

type wiqlResponse struct {
	QueryType       string              `json:"queryType"`
	QueryResultType string              `json:"queryResultType"`
	WorkItems       []workItemReference `json:"workItems"`
}

type workItemsBatchRequest struct {
	IDs    []int    `json:"ids"`
	Fields []string `json:"fields,omitempty"`
}

type workItemRelation struct {
	Rel string `json:"rel"`
	URL string `json:"url"`
}

type workItem struct {
	Fields    map[string]any     `json:"fields"`
	URL       string             `json:"url"`
	Relations []workItemRelation `json:"relations"`
	ID        int                `json:"id"`
}

type workItemsBatchResponse struct {
	Value []workItem `json:"value"`
	Count int        `json:"count"`
}

type team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type teamsResponse struct {
	Value []team `json:"value"`
	Count int    `json:"count"`
}

type teamFieldValue struct {
	Value           string `json:"value"`
	IncludeChildren bool   `json:"includeChildren"`
}

type teamFieldValuesResponse struct {
	DefaultValue string           `json:"defaultValue"`
	Values       []teamFieldValue `json:"values"`
}

type errorResponse struct {
	Message string `json:"message"`
	TypeKey string `json:"typeKey"`
}
