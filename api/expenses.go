package api

import (
	"encoding/json"
	"fmt"

	"github.com/0xcafe-io/iz"
	"github.com/otieno-dev/chama_tracker/internal/chama"
)

func (api *Api) SaveExpenseHandler(r *iz.Request) iz.Responder {
	userId, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	var expenseReq NewExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&expenseReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	date, err := parseDateField("date", expenseReq.Date)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
	}

	req := chama.NewExpenseRequest{
		Description: expenseReq.Description,
		Amount:      expenseReq.Amount,
		Date:        date,
		MemberID:    expenseReq.MemberID,
		ProjectID:   expenseReq.ProjectID,
	}

	expense, err := api.Service.SaveExpense(r.Context(), userId, req)
	if err != nil {
		msg := fmt.Sprintf("failed to create expense: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(201).JSON(ExpenseToHttp(expense))
}

func (api *Api) GetFilteredExpensesHandler(r *iz.Request) iz.Responder {
	_, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	params := r.URL.Query()
	filters, err := ExpensesListValidateParams(params)
	if err != nil {
		msg := fmt.Sprintf("invalid filter parameters: %s", err.Error())
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	expenses, err := api.Service.GetFilteredExpenses(r.Context(), filters)
	if err != nil {
		msg := fmt.Sprintf("failed to get expenses: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	var resp ListExpensesResponse
	resp.Expenses = make([]ExpenseItem, 0, len(expenses))
	for _, expense := range expenses {
		resp.Expenses = append(resp.Expenses, ExpenseToHttp(expense))
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) ApproveExpenseHandler(r *iz.Request) iz.Responder {
	userId, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	expenseId := r.PathValue("id")
	if expenseId == "" {
		return iz.Respond().Status(400).Text("expense id is required")
	}

	expense, err := api.Service.ApproveExpense(r.Context(), userId, expenseId)
	if err != nil {
		msg := fmt.Sprintf("failed to approve expense: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).JSON(ExpenseToHttp(expense))
}

func (api *Api) RejectExpenseHandler(r *iz.Request) iz.Responder {
	userId, _, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	expenseId := r.PathValue("id")
	if expenseId == "" {
		return iz.Respond().Status(400).Text("expense id is required")
	}

	expense, err := api.Service.RejectExpense(r.Context(), userId, expenseId)
	if err != nil {
		msg := fmt.Sprintf("failed to reject expense: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).JSON(ExpenseToHttp(expense))
}
