package service

import (
    "context"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/nightpass/admission/internal/model"
    "github.com/nightpass/admission/internal/queue"
    "github.com/nightpass/admission/internal/repository"
)

// memStore is an in-memory CredentialStore/ProductStore honoring the
// same contract as the MySQL repositories: per-scope code uniqueness on
// Create and a serialized bounded increment on Redeem.  A single mutex
// plays the role of the row lock.
type memStore struct {
    mu            sync.Mutex
    nextID        uint64
    creds         map[uint64]*model.Credential
    byCode        map[string]uint64
    meta          map[uint64]memMeta
    products      map[uint64]*model.Product
    admissions    []model.Admission
    dupesToInject int // Create returns ErrDuplicateCode this many times
}

type memMeta struct {
    holder       string
    email        string
    product      string
    tier         model.ProductTier
    instructions *string
}

func newMemStore() *memStore {
    return &memStore{
        creds:    make(map[uint64]*model.Credential),
        byCode:   make(map[string]uint64),
        meta:     make(map[uint64]memMeta),
        products: make(map[uint64]*model.Product),
    }
}

func (s *memStore) addProduct(p *model.Product) { s.products[p.ID] = p }

// seed inserts a credential directly, bypassing issuance.
func (s *memStore) seed(cred *model.Credential, meta memMeta) *model.Credential {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.nextID++
    cred.ID = s.nextID
    if cred.PublicID == uuid.Nil {
        cred.PublicID = uuid.New()
    }
    cred.Status = model.StatusFor(cred.RedeemedCount, cred.Quantity)
    cred.CreatedAt = time.Now().UTC()
    cred.UpdatedAt = cred.CreatedAt
    s.creds[cred.ID] = cred
    s.byCode[cred.Code] = cred.ID
    s.meta[cred.ID] = meta
    return cred
}

func (s *memStore) get(id uint64) model.Credential {
    s.mu.Lock()
    defer s.mu.Unlock()
    return *s.creds[id]
}

func (s *memStore) admissionTotal(id uint64) uint32 {
    s.mu.Lock()
    defer s.mu.Unlock()
    var n uint32
    for _, a := range s.admissions {
        if a.CredentialID == id {
            n += a.Quantity
        }
    }
    return n
}

func (s *memStore) Create(_ context.Context, cred *model.Credential) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.dupesToInject > 0 {
        s.dupesToInject--
        return repository.ErrDuplicateCode
    }
    if _, exists := s.byCode[cred.Code]; exists {
        return repository.ErrDuplicateCode
    }
    s.nextID++
    cred.ID = s.nextID
    cred.RedeemedCount = 0
    cred.Status = model.StatusPending
    cred.CreatedAt = time.Now().UTC()
    cred.UpdatedAt = cred.CreatedAt
    clone := *cred
    s.creds[cred.ID] = &clone
    s.byCode[cred.Code] = cred.ID
    return nil
}

func (s *memStore) GetByCode(_ context.Context, code string) (*repository.CredentialDetail, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    id, ok := s.byCode[code]
    if !ok {
        return nil, repository.ErrCredentialNotFound
    }
    return s.detailLocked(id), nil
}

func (s *memStore) detailLocked(id uint64) *repository.CredentialDetail {
    m := s.meta[id]
    return &repository.CredentialDetail{
        Credential:          *s.creds[id],
        HolderName:          m.holder,
        HolderEmail:         m.email,
        ProductName:         m.product,
        Tier:                m.tier,
        SpecialInstructions: m.instructions,
    }
}

func (s *memStore) Redeem(_ context.Context, credentialID uint64, requested uint32, staffID uint64) (*model.Credential, error) {
    if requested == 0 {
        return nil, repository.ErrInsufficientRemainder
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    cred, ok := s.creds[credentialID]
    if !ok {
        return nil, repository.ErrCredentialNotFound
    }
    if cred.RedeemedCount >= cred.Quantity {
        return nil, repository.ErrAlreadyRedeemed
    }
    if requested > cred.Quantity-cred.RedeemedCount {
        return nil, repository.ErrInsufficientRemainder
    }
    now := time.Now().UTC()
    cred.RedeemedCount += requested
    cred.Status = model.StatusFor(cred.RedeemedCount, cred.Quantity)
    cred.LastRedeemedBy = &staffID
    cred.LastRedeemedAt = &now
    cred.UpdatedAt = now
    s.admissions = append(s.admissions, model.Admission{
        CredentialID: credentialID,
        StaffID:      staffID,
        Quantity:     requested,
        CreatedAt:    now,
    })
    clone := *cred
    return &clone, nil
}

func (s *memStore) CountByOwnerAndProduct(_ context.Context, ownerID, productID uint64) (uint32, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var n uint32
    for _, c := range s.creds {
        if c.OwnerID == ownerID && c.ProductID == productID {
            n++
        }
    }
    return n, nil
}

func (s *memStore) GetByID(_ context.Context, id uint64) (*model.Product, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    p, ok := s.products[id]
    if !ok {
        return nil, repository.ErrProductNotFound
    }
    clone := *p
    return &clone, nil
}

// memPublisher records published events for assertions.
type memPublisher struct {
    mu       sync.Mutex
    issued   []queue.CredentialIssuedEvent
    redeemed []queue.CredentialRedeemedEvent
}

func (p *memPublisher) CredentialIssued(_ context.Context, ev queue.CredentialIssuedEvent) {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.issued = append(p.issued, ev)
}

func (p *memPublisher) CredentialRedeemed(_ context.Context, ev queue.CredentialRedeemedEvent) {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.redeemed = append(p.redeemed, ev)
}

func (p *memPublisher) redeemedCount() int {
    p.mu.Lock()
    defer p.mu.Unlock()
    return len(p.redeemed)
}
