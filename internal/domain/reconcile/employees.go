package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"hrsync/internal/domain/employee"
	"hrsync/internal/platform/deviceapi"
	"hrsync/internal/platform/events"
	"hrsync/internal/platform/retry"
)

// SyncEmployees mirrors the device user directory into the employee table,
// keyed by the device uid.
func (e *Engine) SyncEmployees(ctx context.Context) SyncResult {
	result := e.syncEmployees(ctx, TriggerManual)
	logResult(result)
	return result
}

// ScheduledEmployeeSync is SyncEmployees tagged as a scheduled run.
func (e *Engine) ScheduledEmployeeSync(ctx context.Context) SyncResult {
	result := e.syncEmployees(ctx, TriggerScheduled)
	logResult(result)
	return result
}

// EmployeesWithFallback refreshes the directory from the device when it
// answers and always returns the local list.
func (e *Engine) EmployeesWithFallback(ctx context.Context) ([]employee.Employee, Provenance, error) {
	result := e.syncEmployees(ctx, TriggerRead)
	source := FromLocal
	if result.OK && !result.Skipped {
		source = FromRemote
	}
	list, err := e.employees.List(ctx)
	if err != nil {
		return nil, source, storeFailure("list employees", err)
	}
	return list, source, nil
}

// CreateEmployee stores the employee and enrols it on the device. A device
// failure leaves the local row in place and is reported in the result.
func (e *Engine) CreateEmployee(ctx context.Context, in NewEmployee) (EmployeeWrite, error) {
	emp := in.Employee
	if strings.TrimSpace(emp.ExternalID) == "" {
		emp.ExternalID = strings.TrimSpace(emp.UserID)
	}
	created, err := e.employees.Create(ctx, emp)
	if err != nil {
		return EmployeeWrite{}, err
	}

	out := EmployeeWrite{Employee: created}
	err = e.remote.CreateUser(ctx, deviceapi.NewUser{
		UID:       created.UserID,
		Name:      created.LastName,
		Card:      in.Card,
		GroupID:   in.GroupID,
		Password:  in.Password,
		Privilege: in.Privilege,
	})
	if err != nil {
		out.RemoteError = err.Error()
		slog.Warn("device enrolment failed", "employeeId", created.ID, "userId", created.UserID, "err", err)
	} else {
		out.RemoteSynced = true
	}
	e.events.Publish(events.Event{Type: events.TypeEmployeeUpdate, Data: created})
	return out, nil
}

// DeleteEmployee removes the employee locally and from the device.
func (e *Engine) DeleteEmployee(ctx context.Context, id string) (EmployeeWrite, error) {
	deleted, err := e.employees.Delete(ctx, id)
	if err != nil {
		return EmployeeWrite{}, err
	}

	out := EmployeeWrite{Employee: deleted}
	if deleted.ExternalID != "" {
		if err := e.remote.DeleteUser(ctx, deleted.ExternalID); err != nil {
			out.RemoteError = err.Error()
			slog.Warn("device user removal failed", "employeeId", deleted.ID, "externalId", deleted.ExternalID, "err", err)
		} else {
			out.RemoteSynced = true
		}
	}
	e.events.Publish(events.Event{Type: events.TypeEmployeeUpdate, Data: deleted})
	return out, nil
}

func (e *Engine) syncEmployees(ctx context.Context, trigger string) SyncResult {
	if !e.employeeBusy.CompareAndSwap(false, true) {
		return e.skipped(KindEmployee, trigger)
	}
	defer e.employeeBusy.Store(false)

	result := SyncResult{Kind: KindEmployee, Trigger: trigger, StartedAt: e.now()}

	policy := e.retry
	policy.Name = "fetch users"
	users, err := retry.Do(ctx, policy, func(ctx context.Context) ([]deviceapi.RawUser, error) {
		return e.remote.FetchUsers(ctx)
	})
	if err != nil {
		return e.finish(result, err)
	}
	result.Fetched = len(users)

	for i, user := range users {
		if !user.UID.Valid {
			result.Dropped++
			slog.Warn("dropping device user without uid", "index", i)
			continue
		}
		_, err := e.employees.UpsertSynced(ctx, employee.SyncedUser{
			ExternalID: strconv.Itoa(user.UID.Value),
			UserID:     string(user.UserID),
			Name:       user.Name,
		})
		if errors.Is(err, employee.ErrAlreadyExists) {
			result.Dropped++
			slog.Warn("device user conflicts with an existing employee", "uid", user.UID.Value, "userId", string(user.UserID))
			continue
		}
		if err != nil {
			return e.finish(result, storeFailure("upsert employee", err))
		}
		result.Upserted++
	}
	if result.Upserted > 0 {
		e.events.Publish(events.Event{Type: events.TypeEmployeeUpdate, Data: result.Upserted})
	}
	return e.finish(result, nil)
}
