// Package billing provides the per-student financial engine of the school platform.
//
// This package implements the billing bounded context, which is responsible for:
//   - Resolving the effective fee of a charge type for a student (class overrides,
//     discount and exemption profiles)
//   - Deciding lateness and late-payment penalties for a month
//   - Deriving the billing state of every (student, year, month)
//   - Auditing prior academic years for unresolved debt that blocks renewal
//   - Building a chronological debit/credit statement with a running balance
//
// Key Aggregates:
//   - Student: carries the financial profile, the payment records and extra charges
//
// Value Objects:
//   - FinancialSettings, AcademicYear, PaymentRecord, ExtraCharge
//   - MonthlyStatus, DebtAudit, Ledger (computed, never stored)
//
// Every computation is a pure function of an explicit snapshot and the current
// date. Nothing in this package performs I/O or keeps state between calls.
package billing
