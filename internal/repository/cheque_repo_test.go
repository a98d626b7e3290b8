package repository_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chequepro/depositslip/internal/domain"
	"github.com/chequepro/depositslip/internal/repository"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := repository.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func cheque(id, number, amount string) domain.Cheque {
	return domain.Cheque{
		ID:           id,
		ChequeDate:   "2024-03-15",
		ChequeNumber: number,
		BankName:     "Bank of Ceylon",
		Branch:       "Kandy",
		BankCode:     "7010",
		Payee:        "Nimal Perera",
		Amount:       decimal.RequireFromString(amount),
		Status:       domain.StatusPending,
		AddedDate:    time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
	}
}

func Test_ChequeRepo_InsertAndGet(t *testing.T) {
	// arrange
	repo := repository.NewChequeRepo(newTestDB(t))
	c := cheque("c1", "000123", "1500.75")
	c.AccountHolder = "Nimal Perera"

	// act
	require.NoError(t, repo.Insert(&c))
	got, err := repo.Get("c1")

	// assert
	require.NoError(t, err)
	assert.Equal(t, "000123", got.ChequeNumber)
	assert.True(t, decimal.RequireFromString("1500.75").Equal(got.Amount))
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.False(t, got.Exported)
	assert.Nil(t, got.DepositedDate)
	assert.True(t, c.AddedDate.Equal(got.AddedDate))
}

func Test_ChequeRepo_Get_Missing(t *testing.T) {
	repo := repository.NewChequeRepo(newTestDB(t))

	_, err := repo.Get("nope")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func Test_ChequeRepo_FindByField_NewestFirst(t *testing.T) {
	// arrange
	repo := repository.NewChequeRepo(newTestDB(t))
	first := cheque("old", "555", "10")
	second := cheque("new", "555", "20")
	other := cheque("x", "777", "30")
	require.NoError(t, repo.Insert(&first))
	require.NoError(t, repo.Insert(&second))
	require.NoError(t, repo.Insert(&other))

	// act
	got, err := repo.FindByField("chequeNumber", "555")

	// assert
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "old", got[1].ID)
}

func Test_ChequeRepo_FindByField_RejectsUnknownField(t *testing.T) {
	repo := repository.NewChequeRepo(newTestDB(t))

	_, err := repo.FindByField("amount; DROP TABLE cheques", "1")

	assert.Error(t, err)
}

func Test_ChequeRepo_Upsert_KeepsOrder(t *testing.T) {
	// arrange
	repo := repository.NewChequeRepo(newTestDB(t))
	a := cheque("a", "1", "10")
	b := cheque("b", "2", "20")
	require.NoError(t, repo.Insert(&a))
	require.NoError(t, repo.Insert(&b))

	// act
	at := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	a.MarkDeposited(at)
	require.NoError(t, repo.Upsert(a))
	all, err := repo.All()

	// assert
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "a", all[1].ID)
	assert.Equal(t, domain.StatusDeposited, all[1].Status)
	require.NotNil(t, all[1].DepositedDate)
	assert.True(t, at.Equal(*all[1].DepositedDate))
}

func Test_ChequeRepo_UpsertAll(t *testing.T) {
	repo := repository.NewChequeRepo(newTestDB(t))

	err := repo.UpsertAll([]domain.Cheque{cheque("a", "1", "10"), cheque("b", "2", "20")})

	require.NoError(t, err)
	n, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func Test_ChequeRepo_BulkInsert_IgnoresDuplicates(t *testing.T) {
	repo := repository.NewChequeRepo(newTestDB(t))

	n, err := repo.BulkInsert([]domain.Cheque{cheque("a", "1", "10"), cheque("a", "1", "10"), cheque("b", "2", "5")})

	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func Test_ChequeRepo_Delete(t *testing.T) {
	repo := repository.NewChequeRepo(newTestDB(t))
	_, err := repo.BulkInsert([]domain.Cheque{cheque("a", "1", "10"), cheque("b", "2", "20"), cheque("c", "3", "30")})
	require.NoError(t, err)

	require.NoError(t, repo.Delete("a"))
	assert.ErrorIs(t, repo.Delete("a"), domain.ErrNotFound)

	n, err := repo.DeleteMany([]string{"b", "c", "zzz"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func Test_ChequeRepo_List(t *testing.T) {
	// arrange
	repo := repository.NewChequeRepo(newTestDB(t))
	a := cheque("a", "1001", "10")
	b := cheque("b", "1002", "20")
	b.Payee = "Kamal Silva"
	b.ChequeDate = "2024-05-01"
	c := cheque("c", "1003", "30")
	c.Status = domain.StatusDeposited
	_, err := repo.BulkInsert([]domain.Cheque{a, b, c})
	require.NoError(t, err)
	yes := true
	_, err = repo.MarkExported([]string{"c"}, domain.ExportFull, time.Now())
	require.NoError(t, err)

	testCases := []struct {
		name   string
		filter repository.ChequeFilter
		want   []string
		total  int
	}{
		{"all", repository.ChequeFilter{}, []string{"c", "b", "a"}, 3},
		{"search payee", repository.ChequeFilter{Query: "kamal"}, []string{"b"}, 1},
		{"status", repository.ChequeFilter{Status: "deposited"}, []string{"c"}, 1},
		{"exported", repository.ChequeFilter{Exported: &yes}, []string{"c"}, 1},
		{"date range", repository.ChequeFilter{From: "2024-04-01", To: "2024-05-31"}, []string{"b"}, 1},
		{"paging", repository.ChequeFilter{Page: 2, Limit: 2}, []string{"a"}, 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			got, total, err := repo.List(tc.filter)

			// assert
			require.NoError(t, err)
			assert.Equal(t, tc.total, total)
			ids := make([]string, 0, len(got))
			for _, c := range got {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func Test_ChequeRepo_MarkExported(t *testing.T) {
	repo := repository.NewChequeRepo(newTestDB(t))
	_, err := repo.BulkInsert([]domain.Cheque{cheque("a", "1", "10"), cheque("b", "2", "20")})
	require.NoError(t, err)

	n, err := repo.MarkExported([]string{"a"}, domain.ExportUpdate, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := repo.Unexported()
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "b", left[0].ID)

	n, err = repo.MarkExported(nil, domain.ExportFull, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := repo.Get("a")
	require.NoError(t, err)
	assert.Equal(t, domain.ExportFull, got.ExportType)
	assert.NotNil(t, got.ExportDate)
}

func Test_ChequeRepo_GetDashboardStats(t *testing.T) {
	// arrange
	repo := repository.NewChequeRepo(newTestDB(t))
	now := time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC) // Thursday
	old := cheque("a", "1", "100.10")
	old.ChequeDate = "2024-03-01"
	thisWeek := cheque("b", "2", "200.20")
	thisWeek.ChequeDate = "2024-03-10"
	deposited := cheque("c", "3", "300.30")
	deposited.ChequeDate = "2024-03-12"
	deposited.MarkDeposited(now)
	_, err := repo.BulkInsert([]domain.Cheque{old, thisWeek, deposited})
	require.NoError(t, err)
	_, err = repo.MarkExported([]string{"a"}, domain.ExportFull, now)
	require.NoError(t, err)

	// act
	s, err := repo.GetDashboardStats(now)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.ThisWeek)
	assert.Equal(t, 2, s.Pending)
	assert.Equal(t, 1, s.Deposited)
	assert.Equal(t, 2, s.Unexported)
	assert.Equal(t, "600.60", s.TotalAmount.StringFixed(2))
	assert.Equal(t, "200.20", s.AvgAmount.StringFixed(2))
	assert.Equal(t, 33, s.ProcessRate)
}

func Test_WeekStart(t *testing.T) {
	got := repository.WeekStart(time.Date(2024, 3, 14, 15, 30, 0, 0, time.UTC))

	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), got)
}
