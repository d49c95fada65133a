package model

// Input payloads carry validator tags mirroring the admin form rules:
// short bounded titles, YYYY-MM-DD dates, HH:MM times, positive capacity
// and price. Patch types use pointers so absent fields are left untouched.

// CreateEventInput is the payload for creating a new event.
type CreateEventInput struct {
	Title            string      `json:"title" validate:"required,min=3,max=100"`
	Date             string      `json:"date" validate:"required,datetime=2006-01-02"`
	Time             string      `json:"time" validate:"required,datetime=15:04"`
	Location         string      `json:"location" validate:"required,min=3,max=200"`
	Category         string      `json:"category" validate:"required"`
	Description      string      `json:"description" validate:"required,min=10"`
	Image            string      `json:"image" validate:"omitempty,url"`
	Capacity         int         `json:"capacity" validate:"required,gt=0"`
	RegistrationOpen bool        `json:"registrationOpen"`
	Featured         bool        `json:"featured"`
	Status           EventStatus `json:"status" validate:"omitempty,oneof=upcoming completed cancelled"`
}

// EventPatch is a partial update of an event.
type EventPatch struct {
	Title            *string      `json:"title" validate:"omitempty,min=3,max=100"`
	Date             *string      `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time             *string      `json:"time" validate:"omitempty,datetime=15:04"`
	Location         *string      `json:"location" validate:"omitempty,min=3,max=200"`
	Category         *string      `json:"category" validate:"omitempty,min=1"`
	Description      *string      `json:"description" validate:"omitempty,min=10"`
	Image            *string      `json:"image" validate:"omitempty,url"`
	Capacity         *int         `json:"capacity" validate:"omitempty,gt=0"`
	RegistrationOpen *bool        `json:"registrationOpen"`
	Featured         *bool        `json:"featured"`
	Status           *EventStatus `json:"status" validate:"omitempty,oneof=upcoming completed cancelled"`
}

// Apply merges the patch into e, leaving nil fields untouched.
func (p EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Time != nil {
		e.Time = *p.Time
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Image != nil {
		e.Image = *p.Image
	}
	if p.Capacity != nil {
		e.Capacity = *p.Capacity
	}
	if p.RegistrationOpen != nil {
		e.RegistrationOpen = *p.RegistrationOpen
	}
	if p.Featured != nil {
		e.Featured = *p.Featured
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
}

// CreateProductInput is the payload for creating a new product.
type CreateProductInput struct {
	Name          string  `json:"name" validate:"required,min=3,max=100"`
	Price         float64 `json:"price" validate:"required,gt=0"`
	OriginalPrice float64 `json:"originalPrice" validate:"omitempty,gt=0"`
	Category      string  `json:"category" validate:"required"`
	Description   string  `json:"description" validate:"required,min=10"`
	Image         string  `json:"image" validate:"omitempty,url"`
	Stock         int     `json:"stock" validate:"gte=0"`
	Sale          bool    `json:"sale"`
	Featured      bool    `json:"featured"`
}

// ProductPatch is a partial update of a product.
type ProductPatch struct {
	Name          *string  `json:"name" validate:"omitempty,min=3,max=100"`
	Price         *float64 `json:"price" validate:"omitempty,gt=0"`
	OriginalPrice *float64 `json:"originalPrice" validate:"omitempty,gt=0"`
	Category      *string  `json:"category" validate:"omitempty,min=1"`
	Description   *string  `json:"description" validate:"omitempty,min=10"`
	Image         *string  `json:"image" validate:"omitempty,url"`
	Stock         *int     `json:"stock" validate:"omitempty,gte=0"`
	Sale          *bool    `json:"sale"`
	Featured      *bool    `json:"featured"`
}

// Apply merges the patch into p2, leaving nil fields untouched.
func (p ProductPatch) Apply(prod *Product) {
	if p.Name != nil {
		prod.Name = *p.Name
	}
	if p.Price != nil {
		prod.Price = *p.Price
	}
	if p.OriginalPrice != nil {
		prod.OriginalPrice = *p.OriginalPrice
	}
	if p.Category != nil {
		prod.Category = *p.Category
	}
	if p.Description != nil {
		prod.Description = *p.Description
	}
	if p.Image != nil {
		prod.Image = *p.Image
	}
	if p.Stock != nil {
		prod.Stock = *p.Stock
	}
	if p.Sale != nil {
		prod.Sale = *p.Sale
	}
	if p.Featured != nil {
		prod.Featured = *p.Featured
	}
}

// CreateOrderInput is the payload for placing an order.
type CreateOrderInput struct {
	UserEmail       string          `json:"userEmail" validate:"required,email"`
	UserName        string          `json:"userName" validate:"required"`
	Items           []OrderItem     `json:"items" validate:"required,min=1,dive"`
	Total           float64         `json:"total" validate:"required,gt=0"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod" validate:"required"`
	PaymentID       string          `json:"paymentId"`
	Notes           string          `json:"notes"`
}

// CreatePrayerRequestInput is the payload for submitting a prayer request.
type CreatePrayerRequestInput struct {
	Name        string `json:"name" validate:"required"`
	Request     string `json:"request" validate:"required,min=10"`
	IsAnonymous bool   `json:"isAnonymous"`
}

// PrayerRequestPatch is a partial update of a prayer request.
type PrayerRequestPatch struct {
	Name    *string       `json:"name" validate:"omitempty,min=1"`
	Request *string       `json:"request" validate:"omitempty,min=10"`
	Status  *PrayerStatus `json:"status" validate:"omitempty,oneof=active archived"`
}

// Apply merges the patch into r, leaving nil fields untouched.
func (p PrayerRequestPatch) Apply(r *PrayerRequest) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Request != nil {
		r.Request = *p.Request
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
}

// CreateDevotionalInput is the payload for creating a devotional.
type CreateDevotionalInput struct {
	Title     string           `json:"title" validate:"required,min=3,max=100"`
	Verse     string           `json:"verse" validate:"required"`
	VerseText string           `json:"verseText" validate:"required"`
	Content   string           `json:"content" validate:"required,min=10"`
	Category  string           `json:"category"`
	Status    DevotionalStatus `json:"status" validate:"omitempty,oneof=draft published scheduled"`
}

// DevotionalPatch is a partial update of a devotional.
type DevotionalPatch struct {
	Title     *string           `json:"title" validate:"omitempty,min=3,max=100"`
	Verse     *string           `json:"verse" validate:"omitempty,min=1"`
	VerseText *string           `json:"verseText" validate:"omitempty,min=1"`
	Content   *string           `json:"content" validate:"omitempty,min=10"`
	Category  *string           `json:"category"`
	Status    *DevotionalStatus `json:"status" validate:"omitempty,oneof=draft published scheduled"`
}

// Apply merges the patch into d, leaving nil fields untouched.
func (p DevotionalPatch) Apply(d *Devotional) {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Verse != nil {
		d.Verse = *p.Verse
	}
	if p.VerseText != nil {
		d.VerseText = *p.VerseText
	}
	if p.Content != nil {
		d.Content = *p.Content
	}
	if p.Category != nil {
		d.Category = *p.Category
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
}
