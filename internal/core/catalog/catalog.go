// Package catalog holds the portal's seeded sites, orders and kit types and
// the list helpers the pages use to filter, sort and page them.
package catalog

import (
	"sort"
	"time"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderResulted  OrderStatus = "resulted"
	OrderCancelled OrderStatus = "cancelled"
)

// Open reports whether the order is still in flight.
func (s OrderStatus) Open() bool {
	return s == OrderPending || s == OrderShipped || s == OrderDelivered
}

type Site struct {
	ID         string
	CustomerID string
	Name       string
	Address    string
	City       string
	State      string
	Phone      string
	Active     bool
}

type Order struct {
	ID         string
	CustomerID string
	SiteID     string
	SiteName   string
	KitCode    string
	KitName    string
	Quantity   int
	PatientRef string
	Status     OrderStatus
	OrderedAt  time.Time
}

type Kit struct {
	Code        string
	Name        string
	Description string
}

// DashboardMetrics are the tiles on the home page.
type DashboardMetrics struct {
	TotalOrders  int
	OpenOrders   int
	ResultsReady int
	ActiveSites  int
	Customers    int
}

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	customers []string
	sites     []Site
	orders    []Order
	kits      []Kit
}

// Sites returns the sites of one customer ordered by name.
func (c *Catalog) Sites(customerID string) []Site {
	out := Filter(c.sites, func(s Site) bool { return s.CustomerID == customerID })
	return SortBy(out, func(s Site) string { return s.Name }, false)
}

// Orders returns the orders of one customer, newest first.
func (c *Catalog) Orders(customerID string) []Order {
	out := Filter(c.orders, func(o Order) bool { return o.CustomerID == customerID })
	return SortBy(out, func(o Order) int64 { return o.OrderedAt.Unix() }, true)
}

func (c *Catalog) Kits() []Kit {
	out := make([]Kit, len(c.kits))
	copy(out, c.kits)
	return out
}

// Kit looks up a kit type by code.
func (c *Catalog) Kit(code string) (Kit, bool) {
	for _, k := range c.kits {
		if k.Code == code {
			return k, true
		}
	}
	return Kit{}, false
}

// Dashboard computes the tiles for customerID. An empty id aggregates across
// every customer, for admins viewing as admin.
func (c *Catalog) Dashboard(customerID string) DashboardMetrics {
	var m DashboardMetrics

	orders := c.orders
	sites := c.sites
	if customerID != "" {
		orders = Filter(orders, func(o Order) bool { return o.CustomerID == customerID })
		sites = Filter(sites, func(s Site) bool { return s.CustomerID == customerID })
		m.Customers = 1
	} else {
		m.Customers = len(c.customers)
	}

	m.TotalOrders = len(orders)
	for _, o := range orders {
		if o.Status.Open() {
			m.OpenOrders++
		}
		if o.Status == OrderResulted {
			m.ResultsReady++
		}
	}
	for _, s := range sites {
		if s.Active {
			m.ActiveSites++
		}
	}
	return m
}

// NewSeedCatalog returns the fixed demo data set.
func NewSeedCatalog() *Catalog {
	kits := []Kit{
		{Code: "KIT-CBC", Name: "Complete Blood Count", Description: "Venous draw kit with EDTA tubes"},
		{Code: "KIT-LIPID", Name: "Lipid Panel", Description: "Fasting serum collection kit"},
		{Code: "KIT-A1C", Name: "Hemoglobin A1c", Description: "Capillary collection kit"},
		{Code: "KIT-UA", Name: "Urinalysis", Description: "Sterile urine cup with transport tube"},
	}

	sites := []Site{
		{ID: "SITE-101", CustomerID: "CUST-001", Name: "Northside Main", Address: "410 Elm St", City: "Columbus", State: "OH", Phone: "614-555-0110", Active: true},
		{ID: "SITE-102", CustomerID: "CUST-001", Name: "Northside Annex", Address: "22 Birch Ave", City: "Columbus", State: "OH", Phone: "614-555-0142", Active: true},
		{ID: "SITE-103", CustomerID: "CUST-001", Name: "Northside Satellite", Address: "9 Quarry Rd", City: "Dublin", State: "OH", Phone: "614-555-0187", Active: false},
		{ID: "SITE-201", CustomerID: "CUST-002", Name: "Riverbend Pediatrics", Address: "77 River Pkwy", City: "Dayton", State: "OH", Phone: "937-555-0101", Active: true},
		{ID: "SITE-301", CustomerID: "CUST-003", Name: "Lakeview Plant Clinic", Address: "1 Harbor Way", City: "Toledo", State: "OH", Phone: "419-555-0133", Active: true},
	}

	siteNames := make(map[string]string, len(sites))
	for _, s := range sites {
		siteNames[s.ID] = s.Name
	}
	kitNames := make(map[string]string, len(kits))
	for _, k := range kits {
		kitNames[k.Code] = k.Name
	}

	base := time.Date(2025, 2, 3, 14, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	orders := []Order{
		{ID: "ORD-10001", CustomerID: "CUST-001", SiteID: "SITE-101", KitCode: "KIT-CBC", Quantity: 25, PatientRef: "PT-88231", Status: OrderResulted, OrderedAt: base},
		{ID: "ORD-10002", CustomerID: "CUST-001", SiteID: "SITE-102", KitCode: "KIT-LIPID", Quantity: 10, PatientRef: "PT-88402", Status: OrderDelivered, OrderedAt: base.Add(2 * day)},
		{ID: "ORD-10003", CustomerID: "CUST-001", SiteID: "SITE-101", KitCode: "KIT-A1C", Quantity: 40, PatientRef: "PT-88517", Status: OrderShipped, OrderedAt: base.Add(5 * day)},
		{ID: "ORD-10004", CustomerID: "CUST-001", SiteID: "SITE-102", KitCode: "KIT-UA", Quantity: 15, PatientRef: "PT-88630", Status: OrderPending, OrderedAt: base.Add(9 * day)},
		{ID: "ORD-10005", CustomerID: "CUST-001", SiteID: "SITE-101", KitCode: "KIT-CBC", Quantity: 30, PatientRef: "PT-88744", Status: OrderCancelled, OrderedAt: base.Add(11 * day)},
		{ID: "ORD-10006", CustomerID: "CUST-001", SiteID: "SITE-101", KitCode: "KIT-LIPID", Quantity: 12, PatientRef: "PT-88901", Status: OrderResulted, OrderedAt: base.Add(14 * day)},
		{ID: "ORD-20001", CustomerID: "CUST-002", SiteID: "SITE-201", KitCode: "KIT-CBC", Quantity: 20, PatientRef: "PT-91002", Status: OrderResulted, OrderedAt: base.Add(1 * day)},
		{ID: "ORD-20002", CustomerID: "CUST-002", SiteID: "SITE-201", KitCode: "KIT-UA", Quantity: 8, PatientRef: "PT-91088", Status: OrderPending, OrderedAt: base.Add(7 * day)},
		{ID: "ORD-30001", CustomerID: "CUST-003", SiteID: "SITE-301", KitCode: "KIT-A1C", Quantity: 50, PatientRef: "PT-93410", Status: OrderShipped, OrderedAt: base.Add(3 * day)},
	}
	for i := range orders {
		orders[i].SiteName = siteNames[orders[i].SiteID]
		orders[i].KitName = kitNames[orders[i].KitCode]
	}

	customers := make(map[string]struct{})
	for _, s := range sites {
		customers[s.CustomerID] = struct{}{}
	}
	ids := make([]string, 0, len(customers))
	for id := range customers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &Catalog{customers: ids, sites: sites, orders: orders, kits: kits}
}
